package binder

import (
	"fmt"
	"net/http"
)

// Form binds `form` tags from an application/x-www-form-urlencoded body.
func Form() func(r *http.Request, v any) error {
	return func(r *http.Request, v any) error {
		mt, err := mediaType(r)
		if err != nil {
			return err
		}
		if mt != "application/x-www-form-urlencoded" {
			return fmt.Errorf("%w: got %s", ErrNotApplicable, mt)
		}
		if err := r.ParseForm(); err != nil {
			return fmt.Errorf("%w: %v", ErrFailedToParseForm, err)
		}
		return bindToStruct(v, "form", func(name string) []string { return r.PostForm[name] }, ErrFailedToParseForm)
	}
}
