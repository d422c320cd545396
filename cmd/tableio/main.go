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

// tableio lists, inspects and counts tabular files on local disk, S3 or
// Google Cloud Storage.
//
//	tableio files 's3://bucket/events/*.parquet'
//	tableio schema --option header=true data.csv.gz
//	tableio head -n 5 --columns id,name gs://bucket/users.avro
//	tableio count --format json --options-file opts.yaml out/
package main

import (
	"os"

	"github.com/apache/beam/tableio/cmd/tableio/cmd"
	_ "github.com/apache/beam/tableio/pkg/io/filesystem/gcs"
	_ "github.com/apache/beam/tableio/pkg/io/filesystem/local"
	_ "github.com/apache/beam/tableio/pkg/io/filesystem/memfs"
	_ "github.com/apache/beam/tableio/pkg/io/filesystem/s3"
)

func main() {
	if err := cmd.NewRoot().Execute(); err != nil {
		os.Exit(1)
	}
}
