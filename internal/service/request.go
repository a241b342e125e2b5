// Package service connects the front-ends to the price provider and the
// analysis pipeline.
package service

import (
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"

	apperrors "stock-analyst/internal/errors"
	"stock-analyst/internal/models"
)

// Source identifies which front-end path produced a request.
type Source string

const (
	SourceCommand Source = "command"
	SourceButton  Source = "button"
	SourceCLI     Source = "cli"
)

// Request is the one request shape shared by typed commands, button presses
// and the CLI.
type Request struct {
	Symbol    string `json:"symbol" validate:"required,max=20,symbol"`
	Timeframe string `json:"timeframe" validate:"required,timeframe"`
	Source    Source `json:"source" validate:"required,oneof=command button cli"`
	ChatID    int64  `json:"chat_id,omitempty"`
	MessageID int    `json:"message_id,omitempty"`
}

// NewRequest normalizes symbol and timeframe input.
func NewRequest(symbol, timeframe string, source Source) Request {
	return Request{
		Symbol:    strings.ToUpper(strings.TrimSpace(symbol)),
		Timeframe: strings.ToLower(strings.TrimSpace(timeframe)),
		Source:    source,
	}
}

// TimeframeValue returns the parsed timeframe. Call after Validate.
func (r Request) TimeframeValue() models.Timeframe {
	tf, _ := models.ParseTimeframe(r.Timeframe)
	return tf
}

var symbolPattern = regexp.MustCompile(`^[A-Z0-9^][A-Z0-9.=\-]*$`)

func newValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("symbol", func(fl validator.FieldLevel) bool {
		return symbolPattern.MatchString(fl.Field().String())
	})
	_ = v.RegisterValidation("timeframe", func(fl validator.FieldLevel) bool {
		_, err := models.ParseTimeframe(fl.Field().String())
		return err == nil
	})
	return v
}

// validateRequest converts the first validator failure into a
// ValidationError. Timeframe failures also match ErrUnknownTimeframe.
func validateRequest(v *validator.Validate, r Request) error {
	err := v.Struct(r)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !apperrors.As(err, &fieldErrs) || len(fieldErrs) == 0 {
		return apperrors.Wrap(apperrors.ErrInputValidation, err.Error())
	}

	fe := fieldErrs[0]
	if fe.Field() == "Timeframe" && fe.Tag() == "timeframe" {
		return apperrors.Wrapf(apperrors.ErrUnknownTimeframe, "%q", r.Timeframe)
	}
	return apperrors.NewValidationError(strings.ToLower(fe.Field()), fe.Value(), "failed '"+fe.Tag()+"' check")
}
