// Copyright 2025 The Rivaas Authors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package config

import (
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"

	"github.com/go-playground/validator/v10"
)

var tagValidator = sync.OnceValue(func() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		switch name {
		case "-":
			return ""
		case "":
			return fld.Name
		}

		return name
	})

	return v
})

// validateTags checks the validate struct tags of v and returns one
// field [Error] per violation, joined. Field paths use the json names, such
// as "cache.capacity" or "content_types[1]".
func validateTags(v any) error {
	err := tagValidator().Struct(v)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return NewError("settings", "validate", err)
	}

	var errs error
	for _, e := range verrs {
		path := e.Namespace()
		if _, rest, ok := strings.Cut(path, "."); ok {
			path = rest
		}
		errs = errors.Join(errs, NewFieldError("settings", path, "validate", tagMessage(e)))
	}

	return errs
}

func tagMessage(e validator.FieldError) error {
	switch e.Tag() {
	case "required":
		return errors.New("must not be empty")
	case "gte":
		return fmt.Errorf("must be at least %s, got %v", e.Param(), e.Value())
	case "gt":
		return fmt.Errorf("must be greater than %s, got %v", e.Param(), e.Value())
	case "bcp47_language_tag":
		return fmt.Errorf("%q is not a BCP 47 language tag", e.Value())
	default:
		return fmt.Errorf("failed the %q check", e.Tag())
	}
}
