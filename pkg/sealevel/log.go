package sealevel

import "k8s.io/klog/v2"

type Logger interface {
	Log(s string)
}

// LogRecorder keeps program log lines in memory.
type LogRecorder struct {
	Logs []string
}

func (r *LogRecorder) Log(s string) {
	r.Logs = append(r.Logs, s)
}

type KlogLogger struct{}

func (KlogLogger) Log(s string) {
	klog.Info(s)
}
