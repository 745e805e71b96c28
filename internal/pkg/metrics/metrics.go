// Package metrics declares the service's Prometheus collectors.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	otpIssued = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "otp_issued_total",
			Help: "Total number of one-time passcodes issued.",
		},
	)

	otpVerifications = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "otp_verifications_total",
			Help: "Total number of OTP verifications, by result.",
		},
		[]string{"result"}, // success, not_found, expired, mismatch, error
	)

	pipelineStages = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pass_pipeline_stage_total",
			Help: "Total number of pass provisioning stage executions, by stage and result.",
		},
		[]string{"stage", "result"}, // result: success, failure, skipped
	)

	emailsSent = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "emails_sent_total",
			Help: "Total number of outbound emails, by kind and result.",
		},
		[]string{"kind", "result"}, // kind: plain, attachment; result: success, failure
	)
)

// Handler serves the default registry in the Prometheus exposition format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// IncOTPIssued counts one issued passcode.
func IncOTPIssued() {
	otpIssued.Inc()
}

// IncOTPVerification counts one verification attempt.
func IncOTPVerification(result string) {
	otpVerifications.WithLabelValues(result).Inc()
}

// IncPipelineStage counts one stage outcome.
func IncPipelineStage(stage, result string) {
	pipelineStages.WithLabelValues(stage, result).Inc()
}

// IncEmail counts one outbound email attempt.
func IncEmail(kind, result string) {
	emailsSent.WithLabelValues(kind, result).Inc()
}
