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

package s3

import (
	"strings"

	"github.com/apache/beam/tableio/internal/errors"
)

const scheme = "s3"

// parseURI splits "s3://bucket/key" into bucket and key. The key is empty for
// the bucket root. Keys are taken verbatim, so '?', '#' and '%' are ordinary
// characters.
func parseURI(uri string) (bucket, key string, err error) {
	rest, ok := strings.CutPrefix(uri, scheme+"://")
	if !ok {
		return "", "", errors.Errorf("%q is not an s3:// URI", uri)
	}
	bucket, key, _ = strings.Cut(rest, "/")
	if bucket == "" {
		return "", "", errors.Errorf("%q has no bucket", uri)
	}
	return bucket, key, nil
}

func makeURI(bucket, key string) string {
	return scheme + "://" + bucket + "/" + key
}

// dirPrefix returns the key prefix shared by the objects under key. The
// bucket root has the empty prefix.
func dirPrefix(key string) string {
	if key == "" {
		return ""
	}
	return strings.TrimSuffix(key, "/") + "/"
}
