// Package log is the process-wide logger. Setup is called once by the CLI;
// every other package only emits records through the helpers below.
package log

import (
	"flag"
	"strconv"

	"k8s.io/klog/v2"
)

const (
	levelInfo  klog.Level = 1
	levelDebug klog.Level = 2
)

// Setup configures klog for a command line run. verbosity 0 keeps only
// warnings and errors, 1 adds info records and 2 or more adds debug records.
func Setup(verbosity int) {
	fs := flag.NewFlagSet("klog", flag.ContinueOnError)
	klog.InitFlags(fs)

	_ = fs.Set("logtostderr", "true")
	_ = fs.Set("skip_headers", strconv.FormatBool(verbosity < int(levelDebug)))
	_ = fs.Set("v", strconv.Itoa(verbosity))
}

// Flush writes any buffered records.
func Flush() {
	klog.Flush()
}

func Debug(msg string, keysAndValues ...any) {
	klog.V(levelDebug).InfoSDepth(1, msg, keysAndValues...)
}

func Info(msg string, keysAndValues ...any) {
	klog.V(levelInfo).InfoSDepth(1, msg, keysAndValues...)
}

// Warn is always emitted, regardless of verbosity.
func Warn(msg string, keysAndValues ...any) {
	klog.InfoSDepth(1, "warning: "+msg, keysAndValues...)
}

func Error(msg string, err error, keysAndValues ...any) {
	klog.ErrorSDepth(1, err, msg, keysAndValues...)
}
