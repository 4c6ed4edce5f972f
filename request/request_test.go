package request

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-resty/resty/v2"
)

// Testa a opção WithContext
func TestWithContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	_, err := Do(resty.New(), http.MethodGet, server.URL, WithContext(ctx))
	if err == nil {
		t.Fatal("Esperado erro de timeout, mas a requisição foi concluída")
	}
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Esperado context.DeadlineExceeded, mas recebeu %v", err)
	}
}

// Testa a opção WithJSON
func TestWithJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if ct := r.Header.Get("Content-Type"); !strings.HasPrefix(ct, "application/json") {
			t.Errorf("Esperado Content-Type application/json, mas recebeu '%s'", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if strings.TrimSpace(string(body)) != `{"restype_id":"X"}` {
			t.Errorf("Body inesperado: '%s'", string(body))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Do(resty.New(), http.MethodPost, server.URL, WithJSON(map[string]any{"restype_id": "X"}))
	if err != nil {
		t.Fatalf("Erro na requisição: %v", err)
	}
}

// Testa a opção WithHeader
func TestWithHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("X-Request-ID") != "abc" {
			t.Errorf("Esperado header X-Request-ID 'abc', mas recebeu '%s'", r.Header.Get("X-Request-ID"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Do(resty.New(), http.MethodGet, server.URL, WithHeader("X-Request-ID", "abc"))
	if err != nil {
		t.Fatalf("Erro na requisição: %v", err)
	}
}

// Testa as opções WithBasicAuth e WithCookies
func TestWithBasicAuthAndCookies(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		user, pass, ok := r.BasicAuth()
		if !ok || user != "root" || pass != "test" {
			t.Errorf("Credenciais inesperadas: %q %q", user, pass)
		}
		c, err := r.Cookie("sid")
		if err != nil || c.Value != "tok" {
			t.Errorf("Esperado cookie sid=tok, mas recebeu %v", c)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Do(resty.New(), http.MethodGet, server.URL,
		WithBasicAuth("root", "test"),
		WithCookies([]*http.Cookie{{Name: "sid", Value: "tok"}}),
	)
	if err != nil {
		t.Fatalf("Erro na requisição: %v", err)
	}
}

// Testa a opção WithFormData
func TestWithFormData(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.FormValue("sid") != "tok" {
			t.Errorf("Esperado sid 'tok', mas recebeu '%s'", r.FormValue("sid"))
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Do(resty.New(), http.MethodPost, server.URL, WithFormData(map[string]string{"sid": "tok"}))
	if err != nil {
		t.Fatalf("Erro na requisição: %v", err)
	}
}

// Testa a opção WithFile
func TestWithFile(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		file, header, err := r.FormFile("file")
		if err != nil {
			t.Errorf("Parte multipart ausente: %v", err)
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		defer file.Close()
		body, _ := io.ReadAll(file)
		if header.Filename != "a.jpg" || string(body) != "data" {
			t.Errorf("Arquivo inesperado: %s %q", header.Filename, string(body))
		}
		if ct := header.Header.Get("Content-Type"); ct != "image/jpeg" {
			t.Errorf("Esperado image/jpeg, mas recebeu '%s'", ct)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer server.Close()

	_, err := Do(resty.New(), http.MethodPost, server.URL, WithFile("file", "a.jpg", "image/jpeg", strings.NewReader("data")))
	if err != nil {
		t.Fatalf("Erro na requisição: %v", err)
	}
}

// Testa que um hook com erro impede o envio
func TestWithPreRequestHook(t *testing.T) {
	hits := 0
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
	}))
	defer server.Close()

	hookErr := errors.New("limited")
	_, err := Do(resty.New(), http.MethodGet, server.URL, WithPreRequestHook(func(ctx context.Context) error {
		return hookErr
	}))
	if !errors.Is(err, hookErr) {
		t.Fatalf("Esperado erro do hook, mas recebeu %v", err)
	}
	if hits != 0 {
		t.Errorf("Nenhuma requisição deveria ter sido enviada, mas recebeu %d", hits)
	}
}

// Testa que respostas não-2xx não são erros
func TestNon2xxIsNotAnError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer server.Close()

	resp, err := Do(resty.New(), http.MethodPost, server.URL)
	if err != nil {
		t.Fatalf("Erro na requisição: %v", err)
	}
	if resp.StatusCode() != http.StatusUnauthorized {
		t.Errorf("Esperado status 401, mas recebeu %d", resp.StatusCode())
	}
}
