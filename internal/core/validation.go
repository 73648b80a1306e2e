package core

// validation.go constrains request bodies before they reach the store.
//
// Two shapes are recognized:
//  1. RecordInput: every field required except type_2 and generation (create, replace)
//  2. Patch: every field optional, same bounds when present (partial update)
//
// Pointer fields distinguish "absent" from "zero"; go-playground/validator
// treats a non-nil pointer as present even when it points at a zero value.

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"sort"
	"strings"

	"github.com/go-playground/validator/v10"
)

// RecordInput is the full-input schema used by create and replace.
type RecordInput struct {
	Name       *string `json:"name" validate:"required,min=2,max=30"`
	Type1      *string `json:"type_1" validate:"required"`
	Type2      *string `json:"type_2"`
	Total      *int    `json:"total" validate:"required"`
	HP         *int    `json:"hp" validate:"required"`
	Attack     *int    `json:"attack" validate:"required"`
	Defense    *int    `json:"defense" validate:"required"`
	SpAtk      *int    `json:"sp_atk" validate:"required"`
	SpDef      *int    `json:"sp_def" validate:"required"`
	Speed      *int    `json:"speed" validate:"required,gt=4,lt=200"`
	Generation *int    `json:"generation" validate:"omitempty,gt=0,lt=7"`
	Legendary  *bool   `json:"legendary" validate:"required"`
}

// OptionalString records whether a nullable JSON field was present at all.
type OptionalString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON marks the field as present; null clears Value.
func (o *OptionalString) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	o.Value = &s
	return nil
}

// Patch is the partial-input schema. Absent fields are left untouched.
type Patch struct {
	Name       *string        `json:"name" validate:"omitempty,min=2,max=30"`
	Type1      *string        `json:"type_1"`
	Type2      OptionalString `json:"type_2" validate:"-"`
	Total      *int           `json:"total"`
	HP         *int           `json:"hp"`
	Attack     *int           `json:"attack"`
	Defense    *int           `json:"defense"`
	SpAtk      *int           `json:"sp_atk"`
	SpDef      *int           `json:"sp_def"`
	Speed      *int           `json:"speed" validate:"omitempty,gt=4,lt=200"`
	Generation *int           `json:"generation" validate:"omitempty,gt=0,lt=7"`
	Legendary  *bool          `json:"legendary"`

	nulls []string // non-nullable fields sent as explicit null
}

// UnmarshalJSON decodes the patch and remembers which non-nullable fields
// were sent as null so validation can reject them.
func (p *Patch) UnmarshalJSON(data []byte) error {
	type plain Patch

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	var out plain
	if err := json.Unmarshal(data, &out); err != nil {
		return err
	}

	for key, val := range raw {
		if key == "type_2" || key == "id" {
			continue
		}
		if _, ok := LookupColumn(key); !ok {
			continue
		}
		if bytes.Equal(bytes.TrimSpace(val), []byte("null")) {
			out.nulls = append(out.nulls, key)
		}
	}
	sort.Strings(out.nulls)

	*p = Patch(out)
	return nil
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return len(p.Assignments()) == 0
}

// Assignment is one column to overwrite during a partial update.
type Assignment struct {
	Column string
	Value  any
}

// Assignments lists the supplied fields in column order.
func (p Patch) Assignments() []Assignment {
	var out []Assignment
	add := func(col string, v any) {
		out = append(out, Assignment{Column: col, Value: v})
	}
	if p.Name != nil {
		add("name", *p.Name)
	}
	if p.Type1 != nil {
		add("type_1", *p.Type1)
	}
	if p.Type2.Set {
		add("type_2", p.Type2.Value)
	}
	if p.Total != nil {
		add("total", *p.Total)
	}
	if p.HP != nil {
		add("hp", *p.HP)
	}
	if p.Attack != nil {
		add("attack", *p.Attack)
	}
	if p.Defense != nil {
		add("defense", *p.Defense)
	}
	if p.SpAtk != nil {
		add("sp_atk", *p.SpAtk)
	}
	if p.SpDef != nil {
		add("sp_def", *p.SpDef)
	}
	if p.Speed != nil {
		add("speed", *p.Speed)
	}
	if p.Generation != nil {
		add("generation", *p.Generation)
	}
	if p.Legendary != nil {
		add("legendary", *p.Legendary)
	}
	return out
}

// Apply overwrites exactly the supplied fields of f.
func (p Patch) Apply(f *Fields) {
	if p.Name != nil {
		f.Name = *p.Name
	}
	if p.Type1 != nil {
		f.Type1 = *p.Type1
	}
	if p.Type2.Set {
		if p.Type2.Value == nil {
			f.Type2 = nil
		} else {
			f.Type2 = StringPtr(*p.Type2.Value)
		}
	}
	if p.Total != nil {
		f.Total = *p.Total
	}
	if p.HP != nil {
		f.HP = *p.HP
	}
	if p.Attack != nil {
		f.Attack = *p.Attack
	}
	if p.Defense != nil {
		f.Defense = *p.Defense
	}
	if p.SpAtk != nil {
		f.SpAtk = *p.SpAtk
	}
	if p.SpDef != nil {
		f.SpDef = *p.SpDef
	}
	if p.Speed != nil {
		f.Speed = *p.Speed
	}
	if p.Generation != nil {
		f.Generation = *p.Generation
	}
	if p.Legendary != nil {
		f.Legendary = *p.Legendary
	}
}

// Validator checks request bodies against the record schemas.
type Validator struct {
	v *validator.Validate
}

// NewValidator creates a Validator that reports fields by their JSON names.
func NewValidator() *Validator {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return &Validator{v: v}
}

// ValidateInput checks a full-input body and returns the fields to store,
// with generation defaulted when absent.
func (v *Validator) ValidateInput(in RecordInput) (Fields, error) {
	if err := v.check(in); err != nil {
		return Fields{}, err
	}

	f := Fields{
		Name:       *in.Name,
		Type1:      *in.Type1,
		Total:      *in.Total,
		HP:         *in.HP,
		Attack:     *in.Attack,
		Defense:    *in.Defense,
		SpAtk:      *in.SpAtk,
		SpDef:      *in.SpDef,
		Speed:      *in.Speed,
		Generation: DefaultGeneration,
		Legendary:  *in.Legendary,
	}
	if in.Type2 != nil {
		f.Type2 = StringPtr(*in.Type2)
	}
	if in.Generation != nil {
		f.Generation = *in.Generation
	}
	return f, nil
}

// ValidatePatch checks a partial-input body.
func (v *Validator) ValidatePatch(p Patch) error {
	var fieldErrs []FieldError
	for _, name := range p.nulls {
		fieldErrs = append(fieldErrs, FieldError{Field: name, Message: "may not be null"})
	}

	if err := v.check(p); err != nil {
		var ve *ValidationError
		if !errors.As(err, &ve) {
			return err
		}
		fieldErrs = append(fieldErrs, ve.Fields...)
	}

	if len(fieldErrs) > 0 {
		return &ValidationError{Fields: fieldErrs}
	}
	return nil
}

// check runs struct validation and converts the library's errors.
func (v *Validator) check(s any) error {
	err := v.v.Struct(s)
	if err == nil {
		return nil
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return fmt.Errorf("validate: %w", err)
	}

	out := make([]FieldError, len(verrs))
	for i, fe := range verrs {
		out[i] = FieldError{Field: fe.Field(), Message: describeTag(fe)}
	}
	return &ValidationError{Fields: out}
}

// describeTag renders a failed constraint as a human-readable message.
func describeTag(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "field required"
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "max":
		return fmt.Sprintf("must be at most %s characters", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "lt":
		return fmt.Sprintf("must be less than %s", fe.Param())
	default:
		return fmt.Sprintf("failed %q constraint", fe.Tag())
	}
}
