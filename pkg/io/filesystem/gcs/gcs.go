// Licensed to the Apache Software Foundation (ASF) under one or more
// contributor license agreements.  See the NOTICE file distributed with
// this work for additional information regarding copyright ownership.
// The ASF licenses this file to You under the Apache License, Version 2.0
// (the "License"); you may not use this file except in compliance with
// the License.  You may obtain a copy of the License at
//
//    http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package gcs contains a Google Cloud Storage (GCS) implementation of the
// file system.
package gcs

import (
	"context"
	"io"
	"os"
	"strings"

	"cloud.google.com/go/storage"
	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/apache/beam/tableio/pkg/log"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
)

func init() {
	filesystem.Register("gs", New)
}

type fs struct {
	client           *storage.Client
	billingProjectID string
}

// New creates a new Google Cloud Storage filesystem using application
// default credentials. If it fails, it falls back to unauthenticated
// access. BILLING_PROJECT_ID, when set, is billed for requester-pays buckets.
func New(ctx context.Context) filesystem.Interface {
	client, err := storage.NewClient(ctx, option.WithScopes(storage.ScopeReadWrite))
	if err != nil {
		log.Warnf(ctx, "falling back to unauthenticated GCS access: %v", err)

		client, err = storage.NewClient(ctx, option.WithoutAuthentication())
		if err != nil {
			panic(errors.Wrapf(err, "failed to create GCS client"))
		}
	}
	return &fs{
		client:           client,
		billingProjectID: os.Getenv("BILLING_PROJECT_ID"),
	}
}

func (f *fs) Close() error {
	return f.client.Close()
}

func (f *fs) bucket(name string) *storage.BucketHandle {
	return f.client.Bucket(name).UserProject(f.billingProjectID)
}

// List lists by the literal prefix of the glob and matches the rest here.
func (f *fs) List(ctx context.Context, glob string) ([]string, error) {
	bucket, pattern, err := parseObject(glob)
	if err != nil {
		return nil, err
	}

	keys, err := f.objectNames(ctx, bucket, filesystem.GlobPrefix(pattern))
	if err != nil {
		return nil, err
	}
	names, err := filesystem.MatchKeys(pattern, keys)
	if err != nil {
		return nil, err
	}

	var ret []string
	for _, name := range names {
		ret = append(ret, "gs://"+bucket+"/"+name)
	}
	return ret, nil
}

func (f *fs) objectNames(ctx context.Context, bucket, prefix string) ([]string, error) {
	var names []string
	it := f.bucket(bucket).Objects(ctx, &storage.Query{Prefix: prefix})
	for {
		obj, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		names = append(names, obj.Name)
	}
	return names, nil
}

func (f *fs) OpenRead(ctx context.Context, filename string) (io.ReadCloser, error) {
	bucket, object, err := parseObject(filename)
	if err != nil {
		return nil, err
	}

	r, err := f.bucket(bucket).Object(object).NewReader(ctx)
	if err != nil {
		return nil, pathError("open", filename, err)
	}
	return r, nil
}

// OpenWrite does not create missing buckets.
func (f *fs) OpenWrite(ctx context.Context, filename string) (io.WriteCloser, error) {
	bucket, object, err := parseObject(filename)
	if err != nil {
		return nil, err
	}

	return f.bucket(bucket).Object(object).NewWriter(ctx), nil
}

func (f *fs) Size(ctx context.Context, filename string) (int64, error) {
	bucket, object, err := parseObject(filename)
	if err != nil {
		return -1, err
	}

	attrs, err := f.bucket(bucket).Object(object).Attrs(ctx)
	if err != nil {
		return -1, pathError("stat", filename, err)
	}
	return attrs.Size, nil
}

// Exists reports whether path is an object or a prefix of one.
func (f *fs) Exists(ctx context.Context, path string) (bool, error) {
	_, err := f.Size(ctx, path)
	switch {
	case err == nil:
		return true, nil
	case filesystem.IsNotExist(err):
		return f.IsDir(ctx, path)
	default:
		return false, err
	}
}

func (f *fs) IsDir(ctx context.Context, path string) (bool, error) {
	bucket, object, err := parseObject(path)
	if err != nil {
		return false, err
	}
	if object == "" {
		return true, nil
	}

	it := f.bucket(bucket).Objects(ctx, &storage.Query{Prefix: dirPrefix(object)})
	it.PageInfo().MaxSize = 1
	_, err = it.Next()
	switch {
	case err == iterator.Done:
		return false, nil
	case err != nil:
		return false, err
	default:
		return true, nil
	}
}

// Remove the named file from the filesystem.
func (f *fs) Remove(ctx context.Context, filename string) error {
	bucket, object, err := parseObject(filename)
	if err != nil {
		return err
	}

	if err := f.bucket(bucket).Object(object).Delete(ctx); err != nil {
		return pathError("remove", filename, err)
	}
	return nil
}

// RemoveAll deletes the object at path and every object below it.
func (f *fs) RemoveAll(ctx context.Context, path string) error {
	bucket, object, err := parseObject(path)
	if err != nil {
		return err
	}

	names, err := f.objectNames(ctx, bucket, dirPrefix(object))
	if err != nil {
		return err
	}
	if object != "" {
		names = append(names, object)
	}
	for _, name := range names {
		err := f.bucket(bucket).Object(name).Delete(ctx)
		if err != nil && !errors.Is(err, storage.ErrObjectNotExist) {
			return errors.Wrapf(err, "failed to delete gs://%v/%v", bucket, name)
		}
	}
	return nil
}

// pathError reports a missing object as os.ErrNotExist.
func pathError(op, path string, err error) error {
	if errors.Is(err, storage.ErrObjectNotExist) {
		return &os.PathError{Op: op, Path: path, Err: os.ErrNotExist}
	}
	return errors.Wrapf(err, "%v %v", op, path)
}

func dirPrefix(object string) string {
	if object == "" {
		return ""
	}
	return strings.TrimSuffix(object, "/") + "/"
}

// parseObject deconstructs a GCS object name (gs://bucket/path) into bucket
// and path. The path is taken verbatim.
func parseObject(object string) (bucket, path string, err error) {
	rest, ok := strings.CutPrefix(object, "gs://")
	if !ok {
		return "", "", errors.Wrapf(errors.ErrInvalidPath, "object %s must have 'gs' scheme", object)
	}
	bucket, path, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.Wrapf(errors.ErrInvalidPath, "object %s must have bucket", object)
	}
	return bucket, path, nil
}

// Compile time check for interface implementations.
var (
	_ filesystem.Remover     = ((*fs)(nil))
	_ filesystem.TreeRemover = ((*fs)(nil))
	_ filesystem.DirChecker  = ((*fs)(nil))
	_ filesystem.Exister     = ((*fs)(nil))
)
