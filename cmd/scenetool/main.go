// Command scenetool inspects and converts scene archives.
//
//	scenetool list <archive>           print manifest and entries
//	scenetool convert -from binary+lz4 -to yaml <in> <out>
//
// Conversion only round-trips component and asset types registered in
// this binary; scenes using engine builtins convert as-is.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/pierrec/lz4/v4"

	"github.com/pyrelight/pyrelight/internal/core/observability/log"
	"github.com/pyrelight/pyrelight/internal/core/persist"
)

func main() {
	logger := log.New(log.LevelInfo)

	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "list":
		err = runList(os.Args[2:])
	case "convert":
		err = runConvert(os.Args[2:])
	default:
		usage()
		os.Exit(2)
	}
	if err != nil {
		logger.Error("scenetool failed", log.String("command", os.Args[1]), log.Error(err))
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintln(os.Stderr, "usage: scenetool list <archive>")
	fmt.Fprintln(os.Stderr, "       scenetool convert -from <codec> -to <codec> <in> <out>")
	fmt.Fprintln(os.Stderr, "codecs: yaml, binary, binary+lz4")
}

func runList(args []string) error {
	if len(args) != 1 {
		usage()
		return fmt.Errorf("list: expected one archive path")
	}

	entries, manifest, err := persist.ReadEntries(args[0])
	if err != nil {
		return err
	}

	if manifest != nil {
		fmt.Printf("archive:  %s\n", manifest.ID)
		fmt.Printf("created:  %s\n", manifest.CreatedAt)
		fmt.Printf("codec:    %s\n", manifest.Codec)
		for _, e := range manifest.Entries {
			fmt.Printf("  %-20s %8d bytes  xxh64:%016x\n", e.Name, e.Size, e.Checksum)
		}
		return nil
	}

	fmt.Println("archive has no manifest")
	for name, data := range entries {
		fmt.Printf("  %-20s %8d bytes\n", name, len(data))
	}
	return nil
}

func runConvert(args []string) error {
	fs := flag.NewFlagSet("convert", flag.ContinueOnError)
	from := fs.String("from", "binary+lz4", "codec of the input archive")
	to := fs.String("to", "yaml", "codec of the output archive")
	level := fs.Int("level", 4, "lz4 compression level for compressed output")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 2 {
		usage()
		return fmt.Errorf("convert: expected input and output paths")
	}

	src, err := codecByName(*from, *level)
	if err != nil {
		return err
	}
	dst, err := codecByName(*to, *level)
	if err != nil {
		return err
	}

	scene, err := persist.LoadScene(fs.Arg(0), src)
	if err != nil {
		return err
	}
	return scene.Save(fs.Arg(1), dst)
}

func codecByName(name string, level int) (persist.Codec, error) {
	switch name {
	case "yaml":
		return persist.NewTextCodec(), nil
	case "binary":
		return persist.NewBinaryCodec(), nil
	case "binary+lz4":
		return persist.NewCompressedBinaryCodec(lz4Level(level)), nil
	default:
		return nil, fmt.Errorf("unknown codec %q", name)
	}
}

// lz4Level maps a plain 0-9 flag value onto the lz4 level constants.
func lz4Level(n int) lz4.CompressionLevel {
	levels := []lz4.CompressionLevel{
		lz4.Fast,
		lz4.Level1, lz4.Level2, lz4.Level3,
		lz4.Level4, lz4.Level5, lz4.Level6,
		lz4.Level7, lz4.Level8, lz4.Level9,
	}
	if n < 0 || n >= len(levels) {
		return lz4.Level4
	}
	return levels[n]
}
