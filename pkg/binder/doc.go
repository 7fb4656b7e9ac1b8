// Package binder decodes HTTP requests into tagged structs.
//
// Each binder reads one source and one struct tag:
//
//	type RedeemRequest struct {
//		Code     string `path:"code"`
//		Token    string `path:"token"`
//		Email    string `json:"email" form:"email"`
//		Password string `json:"password" form:"password"`
//	}
//
// Body binders (JSON, Form) return ErrNotApplicable when the request has a
// different content type, so one handler can accept both encodings.
// Supported field kinds are strings, integers, floats, bools, slices of
// those, pointers to them and any encoding.TextUnmarshaler such as uuid.UUID.
package binder
