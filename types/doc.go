// Package types provides core types used across the queryflow library.
// This package has ZERO dependencies on other queryflow packages to avoid
// circular imports. All other packages should import types from here.
package types
