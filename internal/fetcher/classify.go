package fetcher

import (
	"context"
	"crypto/tls"
	"crypto/x509"
	"errors"
	"io"
	"net"
	"strconv"
	"syscall"

	"github.com/nao1215/cliqcrawl/internal/model"
)

// ClassifyStatus maps an HTTP status code to an outcome kind.
func ClassifyStatus(code int) model.OutcomeKind {
	switch {
	case code >= 200 && code < 300:
		return model.OutcomeSuccess
	case code == 429:
		return model.OutcomeRetryable
	case code >= 500 && code < 600:
		return model.OutcomeRetryable
	default:
		return model.OutcomeFatal
	}
}

// statusReason renders a failure reason for an HTTP status.
func statusReason(code int) string {
	return "http " + strconv.Itoa(code)
}

// ClassifyError maps a transport or body-read error to an outcome kind and
// a short reason. parent is the caller's context; when it is done the
// request was aborted on purpose, which is never retried.
func ClassifyError(parent context.Context, err error) (model.OutcomeKind, string) {
	if parent != nil && parent.Err() != nil {
		return model.OutcomeFatal, "aborted"
	}

	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		if dnsErr.IsTimeout {
			return model.OutcomeRetryable, "dns timeout"
		}
		return model.OutcomeFatal, "dns failure: " + dnsErr.Name
	}

	var certErr *tls.CertificateVerificationError
	var unknownAuth x509.UnknownAuthorityError
	var hostnameErr x509.HostnameError
	if errors.As(err, &certErr) || errors.As(err, &unknownAuth) || errors.As(err, &hostnameErr) {
		return model.OutcomeFatal, "tls verification failed"
	}

	if errors.Is(err, ErrBodyTooLarge) {
		return model.OutcomeFatal, ErrBodyTooLarge.Error()
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return model.OutcomeRetryable, "timeout"
	}
	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return model.OutcomeRetryable, "timeout"
	}

	switch {
	case errors.Is(err, syscall.ECONNRESET), errors.Is(err, syscall.ECONNABORTED), errors.Is(err, syscall.EPIPE):
		return model.OutcomeRetryable, "connection reset"
	case errors.Is(err, syscall.ECONNREFUSED):
		return model.OutcomeRetryable, "connection refused"
	case errors.Is(err, io.ErrUnexpectedEOF), errors.Is(err, io.EOF):
		return model.OutcomeRetryable, "connection closed"
	}

	return model.OutcomeFatal, "malformed response: " + err.Error()
}
