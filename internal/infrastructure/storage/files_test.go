package storage

import (
	"errors"
	"testing"

	"factsheetgen/internal/domain"
)

func TestFileStoreSaveReadDelete(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	result := domain.FactsheetResult{
		MarkdownText: "# Stripe - Sales Intelligence Factsheet\n\n**Website:** https://www.stripe.com/\n\n## Overview\nPayments infrastructure.\n",
		SourceURL:    "https://www.stripe.com/",
	}

	filename, err := store.Save(result)
	if err != nil {
		t.Fatalf("Save error: %v", err)
	}
	if filename != "stripe.md" {
		t.Fatalf("expected stripe.md, got %q", filename)
	}

	meta, content, err := store.Read(filename)
	if err != nil {
		t.Fatalf("Read error: %v", err)
	}
	if content != result.MarkdownText {
		t.Fatalf("content round trip failed")
	}
	if meta.CompanyName != "Stripe" {
		t.Fatalf("unexpected company name %q", meta.CompanyName)
	}
	if meta.SourceURL != "https://www.stripe.com/" {
		t.Fatalf("source url not recovered: %q", meta.SourceURL)
	}
	if meta.WordCount == 0 {
		t.Fatalf("word count not computed")
	}

	if err := store.Delete(filename); err != nil {
		t.Fatalf("Delete error: %v", err)
	}
	if _, _, err := store.Read(filename); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.Delete(filename); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound on double delete, got %v", err)
	}
}

func TestFileStoreListSkipsForeignFiles(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir())

	for _, u := range []string{"https://alpha.test/", "https://beta.test/"} {
		if _, err := store.Save(domain.FactsheetResult{MarkdownText: "# x\n", SourceURL: u}); err != nil {
			t.Fatalf("Save error: %v", err)
		}
	}

	metas, err := store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(metas) != 2 {
		t.Fatalf("expected 2 factsheets, got %d", len(metas))
	}
}

func TestFileStoreListEmptyDirIsNotAnError(t *testing.T) {
	t.Parallel()

	store := NewFileStore(t.TempDir() + "/never-created")
	metas, err := store.List()
	if err != nil {
		t.Fatalf("List error: %v", err)
	}
	if len(metas) != 0 {
		t.Fatalf("expected no factsheets, got %d", len(metas))
	}
}

func TestCompanyName(t *testing.T) {
	t.Parallel()

	cases := []struct {
		url  string
		want string
	}{
		{"https://www.stripe.com/payments", "stripe"},
		{"https://docs.github.co.uk/", "github"},
		{"http://localhost:8080/", "localhost"},
		{"not a url", "factsheet"},
	}
	for _, tc := range cases {
		if got := CompanyName(tc.url); got != tc.want {
			t.Fatalf("CompanyName(%q) = %q, want %q", tc.url, got, tc.want)
		}
	}
}

func TestSlugify(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in   string
		want string
	}{
		{"Acme Widgets", "acme-widgets"},
		{"  stripe  ", "stripe"},
		{"!!!", "factsheet"},
		{"Ab3-xY", "ab3-xy"},
	}
	for _, tc := range cases {
		if got := Slugify(tc.in); got != tc.want {
			t.Fatalf("Slugify(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}
