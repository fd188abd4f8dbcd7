package sectoken

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	instructionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sectoken",
		Name:      "instructions_total",
		Help:      "Security token instructions processed, by instruction and result.",
	}, []string{"instruction", "result"})

	receiptsIssuedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sectoken",
		Name:      "receipts_issued_total",
		Help:      "Receipts created, by kind.",
	}, []string{"kind"})

	verificationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "sectoken",
		Name:      "verification_total",
		Help:      "Instruction verifications, by mode and result.",
	}, []string{"mode", "result"})
)
