// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Idlewatch Contributors

package errors

import (
	"fmt"
	"strings"

	"github.com/samber/oops"
)

// Code is the machine-readable identifier for an error.
type Code string

const (
	CodeConfigLoadReadFailure         Code = "config.load.read.failure"
	CodeConfigValidateInvalidValue    Code = "config.validate.invalid_value"
	CodeConfigCredentialNotFound      Code = "config.credential.not_found"
	CodeConfigCredentialLookupFailure Code = "config.credential.lookup.failure"

	CodeProbeEvaluateTimeout      Code = "probe.evaluate.timeout"
	CodeProbeEvaluateFailure      Code = "probe.evaluate.failure"
	CodeProbePanelAuthDenied      Code = "probe.panel.auth.denied"
	CodeProbePanelUpstreamFailure Code = "probe.panel.upstream.failure"
	CodeProbePanelResponseInvalid Code = "probe.panel.response.invalid"
	CodeProbeSocketsQueryFailure  Code = "probe.sockets.query.failure"
	CodeProbeGameQueryFailure     Code = "probe.gamequery.query.failure"

	CodeShutdownPrimitiveFailure Code = "shutdown.primitive.failure"

	CodeServerStartFailure Code = "server.start.failure"

	CodeCLIMonitorNotRunning Code = "cli.monitor.not_running"
	CodeCLIRequestFailure    Code = "cli.request.failure"
	CodeCLIResponseInvalid   Code = "cli.response.invalid"
	CodeCLISetupFailure      Code = "cli.setup.failure"

	CodeEngineInternalFailure Code = "engine.internal.failure"
)

// Attr is a structured key/value context attached to an error.
type Attr struct {
	Key   string
	Value any
}

// Field creates a structured error field.
func Field(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

func FieldProbe(value string) Attr {
	return Field("probe", value)
}

func FieldRound(value uint64) Attr {
	return Field("round", value)
}

func New(code Code, msg string, fields ...Attr) error {
	return oops.Code(code).With(flatten(fields)...).New(msg)
}

func Errorf(code Code, format string, args ...any) error {
	return oops.Code(code).Errorf(format, args...)
}

func Wrap(err error, code Code, msg string, fields ...Attr) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).With(flatten(fields)...).Wrapf(err, "%s", msg)
}

func Wrapf(err error, code Code, format string, args ...any) error {
	if err == nil {
		return nil
	}

	return oops.Code(code).Wrapf(err, format, args...)
}

// With adds structured fields to an existing error chain.
func With(err error, fields ...Attr) error {
	if err == nil {
		return nil
	}

	code := CodeOf(err)
	if code == "" {
		code = CodeEngineInternalFailure
	}

	return oops.Code(code).With(flatten(fields)...).Wrap(err)
}

func CodeOf(err error) Code {
	if err == nil {
		return ""
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return ""
	}

	if code, ok := oopsErr.Code().(Code); ok {
		return code
	}

	if code, ok := oopsErr.Code().(string); ok {
		return Code(code)
	}

	return Code(fmt.Sprintf("%v", oopsErr.Code()))
}

func FieldsOf(err error) map[string]any {
	if err == nil {
		return nil
	}

	oopsErr, ok := oops.AsOops(err)
	if !ok {
		return nil
	}

	return oopsErr.Context()
}

func HasCode(err error, code Code) bool {
	if err == nil {
		return false
	}
	return CodeOf(err) == code
}

func IsTimeout(err error) bool {
	return reason(CodeOf(err)) == "timeout"
}

func IsAuthDenied(err error) bool {
	return reason(CodeOf(err)) == "denied"
}

func IsNotFound(err error) bool {
	return reason(CodeOf(err)) == "not_found"
}

func IsInvalidInput(err error) bool {
	r := reason(CodeOf(err))
	return r == "invalid" || r == "invalid_input" || r == "invalid_value" || r == "invalid_format"
}

func IsUpstreamFailure(err error) bool {
	code := CodeOf(err)
	return strings.Contains(string(code), "upstream") && reason(code) == "failure"
}

func flatten(fields []Attr) []any {
	pairs := make([]any, 0, len(fields)*2)
	for _, field := range fields {
		if field.Key == "" {
			continue
		}
		pairs = append(pairs, field.Key, field.Value)
	}
	return pairs
}

func reason(code Code) string {
	if code == "" {
		return ""
	}

	raw := string(code)
	idx := strings.LastIndex(raw, ".")
	if idx == -1 || idx == len(raw)-1 {
		return raw
	}
	return raw[idx+1:]
}
