// Package handler turns typed request functions into http.HandlerFuncs.
//
//	type renameRequest struct {
//		ID   uuid.UUID `path:"id"`
//		Name string    `json:"name" validate:"required,max=120"`
//	}
//
//	func rename(ctx handler.Context, req renameRequest) handler.Response {
//		t, err := svc.Rename(ctx, req.ID, req.Name)
//		if err != nil {
//			return handler.Error(err)
//		}
//		return handler.JSON(t)
//	}
//
//	r.Post("/admin/tenants/{id}/rename", handler.Wrap(rename,
//		handler.WithBinders[renameRequest](binder.Path(chi.URLParam), binder.JSON()),
//		handler.WithErrorHandler[renameRequest](errs),
//	))
//
// Requests are bound, then validated with pkg/validator. Any failure, and any
// Response that fails to render, goes to the ErrorHandler.
package handler
