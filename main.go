package main

import "github.com/elastic-io/manifest-tools/cmd"

// version must be set from the contents of VERSION file by go build's
// -X main.version= option in the Makefile.
var version = "unknown"

// gitCommit will be the hash that the binary was built from
// and will be populated by the Makefile
var gitCommit = ""

const (
	usage = `retrieve and decrypt the files listed in a manifest

To list the files of a manifest:
    # manifest-tools list-files --manifest-s3url s3://bucket/unload/manifest

To download and decrypt them:
    # manifest-tools retrieve-files -m s3://bucket/unload/manifest -d ./out -k <base64 key>

To print them on stdout:
    # manifest-tools cat-files -m s3://bucket/unload/manifest
`
)

func main() {
	cmd.Execute("manifest-tools", usage, version, gitCommit)
}
