// Copyright (c) 2025-2026 Oleg Ivanchenko
// SPDX-License-Identifier: GPL-3.0-or-later

// Package forms binds HTML form posts to structs and validates them.
package forms

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var (
	validate     *validator.Validate
	validateOnce sync.Once
)

func validatorInstance() *validator.Validate {
	validateOnce.Do(func() {
		validate = validator.New(validator.WithRequiredStructEnabled())
		validate.RegisterTagNameFunc(func(f reflect.StructField) string {
			name, _, _ := strings.Cut(f.Tag.Get("form"), ",")
			if name == "-" {
				return ""
			}
			return name
		})
	})
	return validate
}

// Errors maps form field names to a message for display next to the field.
type Errors map[string]string

// Add records msg for field unless the field already has a message.
func (e Errors) Add(field, msg string) {
	if _, ok := e[field]; !ok {
		e[field] = msg
	}
}

// Get returns the message for field, or "".
func (e Errors) Get(field string) string {
	return e[field]
}

// Any reports whether there is at least one error.
func (e Errors) Any() bool {
	return len(e) > 0
}

// Bind parses the request form into dst, which must be a pointer to a
// struct with string fields tagged `form:"name"`. Values are trimmed
// unless the tag carries the "raw" option.
func Bind(r *http.Request, dst any) error {
	if err := r.ParseForm(); err != nil {
		return fmt.Errorf("parsing form: %w", err)
	}

	v := reflect.ValueOf(dst)
	if v.Kind() != reflect.Pointer || v.Elem().Kind() != reflect.Struct {
		return errors.New("forms: Bind needs a pointer to a struct")
	}
	v = v.Elem()
	t := v.Type()

	for i := range t.NumField() {
		f := t.Field(i)
		tag := f.Tag.Get("form")
		if tag == "" || tag == "-" || f.Type.Kind() != reflect.String {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		value := r.PostForm.Get(name)
		if opts != "raw" {
			value = strings.TrimSpace(value)
		}
		v.Field(i).SetString(value)
	}
	return nil
}

// Validate checks form against its `validate` tags and returns one
// message per failing field. Labels come from the `label` tag.
func Validate(form any) Errors {
	errs := Errors{}
	err := validatorInstance().Struct(form)
	if err == nil {
		return errs
	}

	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		errs.Add("_form", "The form could not be validated.")
		return errs
	}

	t := reflect.TypeOf(form)
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	for _, fe := range verrs {
		label := fe.StructField()
		if sf, ok := t.FieldByName(fe.StructField()); ok {
			if l := sf.Tag.Get("label"); l != "" {
				label = l
			}
		}
		errs.Add(fe.Field(), message(label, fe))
	}
	return errs
}

func message(label string, fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return label + " is required."
	case "email":
		return "Please enter a valid email address."
	case "http_url", "url":
		return "Please enter a valid http or https URL."
	case "max":
		return fmt.Sprintf("%s must be at most %s characters.", label, fe.Param())
	case "min":
		return fmt.Sprintf("%s must be at least %s characters.", label, fe.Param())
	default:
		return label + " is invalid."
	}
}
