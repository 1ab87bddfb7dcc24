package analytics

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"

	"github.com/edirooss/zmux-analytics/pkg/hostutil"
	"github.com/edirooss/zmux-analytics/pkg/jsonx"
	"github.com/go-playground/validator/v10"
)

// ConfigValidationError reports a configuration that does not match the schema.
// It never reaches the dispatch loop.
type ConfigValidationError struct {
	Err error
}

func (e *ConfigValidationError) Error() string { return "invalid configuration: " + e.Err.Error() }
func (e *ConfigValidationError) Unwrap() error { return e.Err }

// wire types track key presence; every field of both sections is required.
type configurationWire struct {
	Record     *actionConfigWire `json:"record" validate:"required"`
	MoveCamera *actionConfigWire `json:"move_camera" validate:"required"`
}

type actionConfigWire struct {
	Enable        *bool    `json:"enable" validate:"required"`
	IP            *string  `json:"ip" validate:"required,host"`
	Port          *int     `json:"port" validate:"required,min=1,max=65535"`
	TimeThreshold *float64 `json:"time_threshold" validate:"required,gte=0,lte=86400"` // MaxTimeThreshold
}

func (w *actionConfigWire) toDomain() ActionConfig {
	return ActionConfig{
		Enable:        *w.Enable,
		IP:            *w.IP,
		Port:          *w.Port,
		TimeThreshold: *w.TimeThreshold,
	}
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("host", func(fl validator.FieldLevel) bool {
		return hostutil.ValidateHost(fl.Field().String()) == nil
	})
	return v
}

// Parse strictly decodes and validates a JSON configuration.
func Parse(raw []byte) (*Configuration, error) {
	return Decode(bytes.NewReader(raw))
}

// Decode strictly decodes and validates a JSON configuration read from src.
func Decode(src io.Reader) (*Configuration, error) {
	var w configurationWire
	if err := jsonx.DecodeStrict(src, &w); err != nil {
		return nil, &ConfigValidationError{Err: err}
	}
	if err := validate.Struct(&w); err != nil {
		return nil, &ConfigValidationError{Err: describe(err)}
	}
	return &Configuration{
		Record:     w.Record.toDomain(),
		MoveCamera: w.MoveCamera.toDomain(),
	}, nil
}

// Validate checks an in-memory configuration against the same rules as Parse.
func (c *Configuration) Validate() error {
	w := configurationWire{Record: fromDomain(c.Record), MoveCamera: fromDomain(c.MoveCamera)}
	if err := validate.Struct(&w); err != nil {
		return &ConfigValidationError{Err: describe(err)}
	}
	return nil
}

func fromDomain(a ActionConfig) *actionConfigWire {
	return &actionConfigWire{Enable: &a.Enable, IP: &a.IP, Port: &a.Port, TimeThreshold: &a.TimeThreshold}
}

// describe flattens validator output into one error per offending field,
// named by JSON path (e.g. "move_camera.port").
func describe(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}

	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		path := strings.TrimPrefix(fe.Namespace(), "configurationWire.")
		switch fe.Tag() {
		case "required":
			errs = append(errs, fmt.Errorf("%s: field required", path))
		case "host":
			errs = append(errs, fmt.Errorf("%s: invalid host %q", path, fe.Value()))
		default:
			errs = append(errs, fmt.Errorf("%s: must satisfy %s=%s (got %v)", path, fe.Tag(), fe.Param(), fe.Value()))
		}
	}
	return errors.Join(errs...)
}
