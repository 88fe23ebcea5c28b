package source

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/aws/aws-sdk-go-v2/service/s3"
)

type fakeStore struct {
	objects     map[string]string
	contentType string
	heads       int
	gets        int
}

func (f *fakeStore) HeadObject(_ context.Context, in *s3.HeadObjectInput, _ ...func(*s3.Options)) (*s3.HeadObjectOutput, error) {
	f.heads++
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NotFound")
	}
	size := int64(len(body))
	ct := f.contentType
	return &s3.HeadObjectOutput{ContentLength: &size, ContentType: &ct}, nil
}

func (f *fakeStore) GetObject(_ context.Context, in *s3.GetObjectInput, _ ...func(*s3.Options)) (*s3.GetObjectOutput, error) {
	f.gets++
	body, ok := f.objects[*in.Bucket+"/"+*in.Key]
	if !ok {
		return nil, errors.New("NoSuchKey")
	}
	return &s3.GetObjectOutput{Body: io.NopCloser(strings.NewReader(body))}, nil
}

func TestParseS3URI(t *testing.T) {
	tests := []struct {
		uri     string
		bucket  string
		key     string
		wantErr bool
	}{
		{"s3://uploads/data.csv", "uploads", "data.csv", false},
		{"s3://uploads/2024/05/data.csv", "uploads", "2024/05/data.csv", false},
		{"s3://uploads", "", "", true},
		{"s3://uploads/", "", "", true},
		{"s3://uploads/dir/", "", "", true},
		{"s3:///data.csv", "", "", true},
		{"/tmp/data.csv", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			bucket, key, err := ParseS3URI(tt.uri)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseS3URI() error = %v, wantErr %v", err, tt.wantErr)
			}
			if bucket != tt.bucket || key != tt.key {
				t.Errorf("ParseS3URI() = (%q, %q), want (%q, %q)", bucket, key, tt.bucket, tt.key)
			}
		})
	}
}

func TestLocal(t *testing.T) {
	dir := t.TempDir()
	p := filepath.Join(dir, "data.csv")
	if err := os.WriteFile(p, []byte("a,b\n1,2\n"), 0o600); err != nil {
		t.Fatal(err)
	}

	fd, err := Local(p)
	if err != nil {
		t.Fatalf("Local: %v", err)
	}
	if fd.Name != "data.csv" || fd.Size != 8 || fd.Location != p {
		t.Errorf("unexpected descriptor: %+v", fd)
	}
	if !fd.IsCSV() {
		t.Error("expected CSV descriptor")
	}

	rc, err := fd.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer func() { _ = rc.Close() }()
	data, err := io.ReadAll(rc)
	if err != nil {
		t.Fatal(err)
	}
	if string(data) != "a,b\n1,2\n" {
		t.Errorf("content = %q", data)
	}
}

func TestLocal_Errors(t *testing.T) {
	dir := t.TempDir()
	if _, err := Local(filepath.Join(dir, "missing.csv")); !errors.Is(err, os.ErrNotExist) {
		t.Errorf("Local(missing) error = %v, want not exist", err)
	}
	if _, err := Local(dir); err == nil {
		t.Error("expected error for directory")
	}
}

func TestResolve_Object(t *testing.T) {
	store := &fakeStore{
		objects:     map[string]string{"uploads/in/data.csv": "x,y\n"},
		contentType: "text/csv; charset=utf-8",
	}
	r := NewResolver(store)

	fd, err := r.Resolve(t.Context(), "s3://uploads/in/data.csv")
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	if fd.Name != "data.csv" || fd.Size != 4 || fd.MediaType != "text/csv" {
		t.Errorf("unexpected descriptor: %+v", fd)
	}
	if store.gets != 0 {
		t.Error("content fetched before Open")
	}

	rc, err := fd.Open()
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	data, _ := io.ReadAll(rc)
	_ = rc.Close()
	if string(data) != "x,y\n" {
		t.Errorf("content = %q", data)
	}
}

func TestResolve_ObjectErrors(t *testing.T) {
	if _, err := NewResolver(nil).Resolve(t.Context(), "s3://uploads/data.csv"); err == nil {
		t.Error("expected error without object store")
	}

	r := NewResolver(&fakeStore{objects: map[string]string{}})
	if _, err := r.Resolve(t.Context(), "s3://uploads/missing.csv"); err == nil {
		t.Error("expected error for missing object")
	}
	if _, err := r.Resolve(t.Context(), "s3://uploads"); err == nil {
		t.Error("expected error for bucket-only URI")
	}
}

func TestMediaType(t *testing.T) {
	tests := map[string]string{
		"":                        "",
		"text/csv":                "text/csv",
		"text/csv; charset=utf-8": "text/csv",
		"TEXT/CSV":                "text/csv",
	}
	for in, want := range tests {
		if got := mediaType(in); got != want {
			t.Errorf("mediaType(%q) = %q, want %q", in, got, want)
		}
	}
}
