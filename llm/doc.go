/*
Package llm contains the query execution pipeline: the Provider boundary
contract and the Pipeline orchestrator that wraps provider calls with
response caching, failure classification and exponential-backoff retry.

A query flows through the pipeline as follows: the response cache is probed
first and a hit replays the stored messages without touching the provider;
on a miss the orchestrator drives one or more provider attempts, forwarding
fragments to the caller as they arrive, and writes the collected fragments
back to the cache only after a fully successful attempt. Failures are
classified (timeout, quota, missing executable, generic) to decide retry
eligibility; a missing executable skips the backoff loop and triggers the
one-time Installer hook instead.

Fragments already delivered before a mid-stream failure are not withdrawn;
a retried attempt restarts the provider sequence from scratch, so the
caller-visible stream may contain superseded early fragments. This is an
accepted property of the design, not a bug.
*/
package llm
