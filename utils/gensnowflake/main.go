// Command gensnowflake generates typed snowflake IDs. Each type gets the
// JSON methods and helpers of Snowflake, so IDs of different entities cannot
// be mixed up.
//
//	go run ./utils/gensnowflake -o discord/ids.go GuildID ChannelID
package main

import (
	"bytes"
	"flag"
	"go/format"
	"go/token"
	"log"
	"os"
	"path/filepath"
	"strings"
	"text/template"

	_ "embed"
)

type data struct {
	Package       string
	ImportDiscord bool
	Snowflakes    []snowflakeType
}

type snowflakeType struct {
	TypeName string
}

//go:embed template.tmpl
var packageTmpl string

var tmpl = template.Must(template.New("").Parse(packageTmpl))

func main() {
	var pkg string
	var out string

	log.SetFlags(0)

	flag.Usage = func() {
		log.Printf("usage: %s [-p package] [-o file] <type names...>", filepath.Base(os.Args[0]))
		flag.PrintDefaults()
	}

	flag.StringVar(&out, "o", "", "output, empty for stdout")
	flag.StringVar(&pkg, "p", "discord", "package name")
	flag.Parse()

	if len(flag.Args()) == 0 {
		flag.Usage()
		os.Exit(1)
	}

	d := data{
		Package:       pkg,
		ImportDiscord: pkg != "discord",
	}

	seen := map[string]bool{}

	for _, name := range flag.Args() {
		if !token.IsExported(name) || !token.IsIdentifier(name) || !strings.HasSuffix(name, "ID") {
			log.Fatalf("invalid type name %q, expected an exported name ending in ID", name)
		}
		if seen[name] {
			log.Fatalf("duplicate type name %q", name)
		}
		seen[name] = true

		d.Snowflakes = append(d.Snowflakes, snowflakeType{TypeName: name})
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, d); err != nil {
		log.Fatalln("failed to execute template:", err)
	}

	b, err := format.Source(buf.Bytes())
	if err != nil {
		log.Fatalln("failed to fmt:", err)
	}

	if out == "" {
		os.Stdout.Write(b)
		return
	}

	// Write next to the target first, so a failed run leaves the old file.
	tmp := out + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		log.Fatalln("failed to write output:", err)
	}
	if err := os.Rename(tmp, out); err != nil {
		os.Remove(tmp)
		log.Fatalln("failed to replace output:", err)
	}
}
