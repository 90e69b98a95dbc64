package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Marks counts mark attempts by outcome: created, duplicate, rejected.
var Marks = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendmark_marks_total",
	Help: "Attendance mark attempts by outcome.",
}, []string{"outcome"})

// Sessions counts session lifecycle transitions: started, stopped.
var Sessions = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendmark_sessions_total",
	Help: "Attendance session starts and stops.",
}, []string{"action"})

// Logins counts login attempts by result: ok, failed.
var Logins = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "attendmark_logins_total",
	Help: "Login attempts by result.",
}, []string{"result"})
