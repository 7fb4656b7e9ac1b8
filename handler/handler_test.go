package handler_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/xamu/xamu/handler"
	"github.com/xamu/xamu/pkg/binder"
	"github.com/xamu/xamu/pkg/logger"
)

type renameRequest struct {
	Code string `path:"code"`
	Name string `json:"name" form:"name" validate:"required,max=10"`
}

var errGone = errors.New("gone")

func newRouter() http.Handler {
	errs := handler.NewErrorHandler(logger.Discard(), func(err error) (handler.HTTPError, bool) {
		if errors.Is(err, errGone) {
			return handler.NewHTTPError(http.StatusGone, "gone"), true
		}
		return handler.HTTPError{}, false
	})

	r := chi.NewRouter()
	r.Post("/{code}/rename", handler.Wrap(func(_ handler.Context, req renameRequest) handler.Response {
		switch req.Name {
		case "gone":
			return handler.Error(errGone)
		case "boom":
			return handler.Error(errors.New("db password leaked"))
		case "nil":
			return nil
		}
		return handler.JSON(req, handler.WithJSONStatus(http.StatusAccepted))
	},
		handler.WithBinders[renameRequest](binder.Path(chi.URLParam), binder.JSON(), binder.Form()),
		handler.WithErrorHandler[renameRequest](errs),
	))
	return r
}

func do(t *testing.T, h http.Handler, ct, body string) (*httptest.ResponseRecorder, handler.JSONResponse) {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/nord/rename", strings.NewReader(body))
	req.Header.Set("Content-Type", ct)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	var env handler.JSONResponse
	if strings.HasPrefix(rec.Header().Get("Content-Type"), "application/json") {
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	}
	return rec, env
}

func TestWrap(t *testing.T) {
	t.Parallel()
	h := newRouter()

	t.Run("json body", func(t *testing.T) {
		t.Parallel()
		rec, env := do(t, h, "application/json", `{"name":"Nord"}`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
		assert.Equal(t, map[string]any{"Code": "nord", "name": "Nord"}, env.Data)
	})

	t.Run("form body", func(t *testing.T) {
		t.Parallel()
		rec, _ := do(t, h, "application/x-www-form-urlencoded", `name=Nord`)
		assert.Equal(t, http.StatusAccepted, rec.Code)
	})

	t.Run("validation", func(t *testing.T) {
		t.Parallel()
		rec, env := do(t, h, "application/json", `{"name":""}`)
		assert.Equal(t, http.StatusUnprocessableEntity, rec.Code)
		require.NotNil(t, env.Error)
		assert.Equal(t, "validation_error", env.Error.Code)
		assert.Contains(t, env.Error.Details, "name")
	})

	t.Run("malformed json", func(t *testing.T) {
		t.Parallel()
		rec, env := do(t, h, "application/json", `{"name":`)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, "bad_request", env.Error.Code)
	})

	t.Run("classified domain error", func(t *testing.T) {
		t.Parallel()
		rec, env := do(t, h, "application/json", `{"name":"gone"}`)
		assert.Equal(t, http.StatusGone, rec.Code)
		assert.Equal(t, "gone", env.Error.Code)
	})

	t.Run("unknown error is masked", func(t *testing.T) {
		t.Parallel()
		rec, env := do(t, h, "application/json", `{"name":"boom"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.NotContains(t, rec.Body.String(), "password")
		assert.Equal(t, "internal_error", env.Error.Code)
	})

	t.Run("nil response", func(t *testing.T) {
		t.Parallel()
		rec, _ := do(t, h, "application/json", `{"name":"nil"}`)
		assert.Equal(t, http.StatusInternalServerError, rec.Code)
	})
}

func TestResponses(t *testing.T) {
	t.Parallel()

	req := httptest.NewRequest(http.MethodGet, "/", nil)

	rec := httptest.NewRecorder()
	require.NoError(t, handler.Empty().Render(rec, req))
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	require.NoError(t, handler.Redirect("/nord/").Render(rec, req))
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/nord/", rec.Header().Get("Location"))

	rec = httptest.NewRecorder()
	page := templ.Raw("<h1>hello</h1>")
	require.NoError(t, handler.Templ(page, http.StatusNotFound).Render(rec, req))
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "<h1>hello</h1>", rec.Body.String())
	assert.Contains(t, rec.Header().Get("Content-Type"), "text/html")
}
