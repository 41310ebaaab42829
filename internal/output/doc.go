// Package output records the time series of a run.
//
// A Recorder samples every output column after accepted macro steps, at
// most once per minimum interval, and fans each row out to its sinks: a CSV
// file, an HTML chart or a static plot rendered when the run ends, and a
// live socket.io stream.
package output
