package models

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"

	"github.com/seslichat/sesli/pkg/Logger"
)

func tagsServer(t *testing.T, names ...string) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models":[`)
		for i, n := range names {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name":%q}`, n)
		}
		fmt.Fprint(w, `]}`)
	}))
}

func TestRefreshPopulatesRegistry(t *testing.T) {
	srv := tagsServer(t, "llama3:latest", "mistral:7b")
	defer srv.Close()

	reg, err := NewRegistry(srv.URL, Logger.New(true))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	if !reg.Has("llama3:latest") || !reg.Has("mistral:7b") {
		t.Errorf("registry is missing refreshed models: %v", reg.Names())
	}
	if reg.Has("gemma:2b") {
		t.Error("Has reported a model the server never listed")
	}
}

func TestNamesAreSorted(t *testing.T) {
	srv := tagsServer(t, "zephyr:latest", "llama3:latest", "mistral:7b")
	defer srv.Close()

	reg, err := NewRegistry(srv.URL, Logger.New(true))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	want := []string{"llama3:latest", "mistral:7b", "zephyr:latest"}
	if got := reg.Names(); !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}
}

func TestRefreshReplacesStaleModels(t *testing.T) {
	current := []string{"old:latest"}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"models":[`)
		for i, n := range current {
			if i > 0 {
				fmt.Fprint(w, ",")
			}
			fmt.Fprintf(w, `{"name":%q}`, n)
		}
		fmt.Fprint(w, `]}`)
	}))
	defer srv.Close()

	reg, err := NewRegistry(srv.URL, Logger.New(true))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}
	if !reg.Has("old:latest") {
		t.Fatal("first refresh did not register the model")
	}

	current = []string{"new:latest"}
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("second Refresh: %v", err)
	}
	if reg.Has("old:latest") {
		t.Error("stale model survived a refresh")
	}
	if !reg.Has("new:latest") {
		t.Error("refreshed model is missing")
	}
}

func TestRefreshErrorLeavesRegistryIntact(t *testing.T) {
	srv := tagsServer(t, "llama3:latest")
	reg, err := NewRegistry(srv.URL, Logger.New(true))
	if err != nil {
		t.Fatalf("NewRegistry: %v", err)
	}
	if err := reg.Refresh(context.Background()); err != nil {
		t.Fatalf("Refresh: %v", err)
	}

	srv.Close()
	if err := reg.Refresh(context.Background()); err == nil {
		t.Fatal("expected an error once the server is gone")
	}
	if !reg.Has("llama3:latest") {
		t.Error("failed refresh wiped the previous model set")
	}
}
