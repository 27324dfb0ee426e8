// Package bench runs repeated harness trials across strategies and
// summarizes them side by side.
//
// A single run says little about an unsynchronized counter: it may match by
// luck on one trial and lose thousands of updates on the next. [Suite] runs
// each kind several times with the same shape and [Summarize] reports how
// often it matched, the spread of observed totals and the mean fraction of
// increments lost.
//
// Kinds are chosen with [SelectKinds], which accepts strategy names, aliases
// and glob patterns such as "*-lock".
package bench
