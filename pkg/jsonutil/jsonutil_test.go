package jsonutil

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestJSON_WritesHeaderStatusAndBody(t *testing.T) {
	rec := httptest.NewRecorder()
	type payload struct {
		Msg string `json:"msg"`
	}
	JSON(rec, http.StatusTeapot, payload{Msg: "hello"})
	require.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	require.Equal(t, http.StatusTeapot, rec.Code)
	var got payload
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	require.Equal(t, "hello", got.Msg)
}

func TestError(t *testing.T) {
	rec := httptest.NewRecorder()
	Error(rec, http.StatusConflict, "already initialized")
	require.Equal(t, http.StatusConflict, rec.Code)
	require.JSONEq(t, `{"error":"already initialized"}`, rec.Body.String())
}

func TestDecode(t *testing.T) {
	type body struct {
		A string `json:"a"`
	}
	cases := []struct {
		name       string
		in         string
		allowEmpty bool
		wantErr    bool
		want       string
	}{
		{"ok", `{"a":"x"}`, false, false, "x"},
		{"empty allowed", ``, true, false, ""},
		{"empty rejected", ``, false, true, ""},
		{"unknown field", `{"b":1}`, true, true, ""},
		{"trailing", `{"a":"x"}{"a":"y"}`, true, true, ""},
		{"malformed", `{"a":`, true, true, ""},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			r := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tc.in))
			var got body
			err := Decode(r, &got, tc.allowEmpty)
			if tc.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Equal(t, tc.want, got.A)
		})
	}
}
