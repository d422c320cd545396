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

// Package s3 contains an AWS S3 implementation of the file system. Keys that
// share a "dir/" prefix are treated as the contents of directory "dir".
// Missing objects are reported with errors matching os.ErrNotExist.
package s3

import (
	"context"
	"io"
	"os"

	"github.com/apache/beam/tableio/internal/errors"
	"github.com/apache/beam/tableio/pkg/io/filesystem"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/s3/types"
)

func init() {
	filesystem.Register(scheme, New)
}

type fs struct {
	client   *s3.Client
	uploader *manager.Uploader
}

// New creates an S3 file system from the AWS default configuration sources:
// environment, shared config files and instance metadata.
func New(ctx context.Context) filesystem.Interface {
	cfg, err := config.LoadDefaultConfig(ctx)
	if err != nil {
		panic(errors.Wrap(err, "failed to load AWS config"))
	}
	return NewFromClient(s3.NewFromConfig(cfg))
}

// NewFromClient creates an S3 file system that uses the given client, e.g. one
// configured with a custom endpoint.
func NewFromClient(client *s3.Client) filesystem.Interface {
	return &fs{client: client, uploader: manager.NewUploader(client)}
}

func (f *fs) Close() error {
	return nil
}

// object returns the bucket and key of uri.
func object(uri string) (bucket, key string, err error) {
	bucket, key, err = parseURI(uri)
	if err != nil {
		return "", "", errors.Wrapf(errors.ErrInvalidPath, "%v", err)
	}
	return bucket, key, nil
}

// notFound rewrites the S3 errors for a missing object to os.ErrNotExist.
func notFound(op, uri string, err error) error {
	var nsk *types.NoSuchKey
	var nf *types.NotFound
	if errors.As(err, &nsk) || errors.As(err, &nf) {
		return &os.PathError{Op: op, Path: uri, Err: os.ErrNotExist}
	}
	return errors.Wrapf(err, "%v %v", op, uri)
}

// List returns the objects, and the implied directories above them, that
// match the glob pattern. Only keys under the pattern's literal prefix are
// listed.
func (f *fs) List(ctx context.Context, glob string) ([]string, error) {
	bucket, pattern, err := object(glob)
	if err != nil {
		return nil, err
	}
	keys, err := f.listObjectKeys(ctx, bucket, filesystem.GlobPrefix(pattern))
	if err != nil {
		return nil, errors.WithContextf(err, "listing %v", glob)
	}
	names, err := filesystem.MatchKeys(pattern, keys)
	if err != nil {
		return nil, err
	}
	uris := make([]string, len(names))
	for i, name := range names {
		uris[i] = makeURI(bucket, name)
	}
	return uris, nil
}

// listObjectKeys returns the keys in bucket that start with prefix, in the
// lexical order S3 lists them.
func (f *fs) listObjectKeys(ctx context.Context, bucket, prefix string) ([]string, error) {
	p := s3.NewListObjectsV2Paginator(f.client, &s3.ListObjectsV2Input{
		Bucket: aws.String(bucket),
		Prefix: aws.String(prefix),
	})
	var keys []string
	for p.HasMorePages() {
		page, err := p.NextPage(ctx)
		if err != nil {
			return nil, err
		}
		for _, obj := range page.Contents {
			keys = append(keys, aws.ToString(obj.Key))
		}
	}
	return keys, nil
}

// OpenRead streams the object. The caller must close the reader.
func (f *fs) OpenRead(ctx context.Context, filename string) (io.ReadCloser, error) {
	bucket, key, err := object(filename)
	if err != nil {
		return nil, err
	}
	out, err := f.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return nil, notFound("open", filename, err)
	}
	return out.Body, nil
}

// OpenWrite returns a writer that uploads to the object as it is written. The
// object is replaced when Close returns without error.
func (f *fs) OpenWrite(ctx context.Context, filename string) (io.WriteCloser, error) {
	bucket, key, err := object(filename)
	if err != nil {
		return nil, err
	}
	if key == "" {
		return nil, errors.Wrapf(errors.ErrInvalidPath, "%v names a bucket, not an object", filename)
	}
	return newWriter(ctx, f.uploader, bucket, key), nil
}

func (f *fs) Size(ctx context.Context, filename string) (int64, error) {
	bucket, key, err := object(filename)
	if err != nil {
		return -1, err
	}
	out, err := f.client.HeadObject(ctx, &s3.HeadObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return -1, notFound("stat", filename, err)
	}
	if out.ContentLength == nil {
		return -1, errors.Errorf("no content length for %v", filename)
	}
	return *out.ContentLength, nil
}

// Exists reports whether the object or an implied directory exists.
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

// IsDir reports whether any object is stored under path + "/". The bucket
// root is always a directory.
func (f *fs) IsDir(ctx context.Context, path string) (bool, error) {
	bucket, key, err := object(path)
	if err != nil {
		return false, err
	}
	if key == "" {
		return true, nil
	}
	out, err := f.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
		Bucket:  aws.String(bucket),
		Prefix:  aws.String(dirPrefix(key)),
		MaxKeys: aws.Int32(1),
	})
	if err != nil {
		return false, errors.Wrapf(err, "listing %v", path)
	}
	return len(out.Contents) > 0, nil
}

// Remove deletes a single object. Deleting a missing object, or an implied
// directory, fails with an error matching os.ErrNotExist.
func (f *fs) Remove(ctx context.Context, filename string) error {
	if _, err := f.Size(ctx, filename); err != nil {
		return err
	}
	bucket, key, _ := object(filename)
	return f.deleteObject(ctx, bucket, key)
}

// RemoveAll deletes the object at path and every object under path + "/".
func (f *fs) RemoveAll(ctx context.Context, path string) error {
	bucket, key, err := object(path)
	if err != nil {
		return err
	}
	keys, err := f.listObjectKeys(ctx, bucket, dirPrefix(key))
	if err != nil {
		return errors.WithContextf(err, "listing %v", path)
	}
	if key != "" {
		keys = append(keys, key)
	}
	for _, k := range keys {
		if err := f.deleteObject(ctx, bucket, k); err != nil {
			return err
		}
	}
	return nil
}

func (f *fs) deleteObject(ctx context.Context, bucket, key string) error {
	_, err := f.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	})
	if err != nil {
		return errors.Wrapf(err, "deleting %v", makeURI(bucket, key))
	}
	return nil
}

// Compile time check for interface implementations.
var (
	_ filesystem.Remover     = (*fs)(nil)
	_ filesystem.TreeRemover = (*fs)(nil)
	_ filesystem.DirChecker  = (*fs)(nil)
	_ filesystem.Exister     = (*fs)(nil)
)
