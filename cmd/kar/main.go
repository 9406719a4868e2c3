// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

// Command kar packs compiled shaders into a kar archive
// that camvis loads with -shaders.
package main

import (
	"flag"
	"fmt"
	"io/ioutil"
	"os"
	"os/user"
	"path/filepath"
	"strings"
	"time"

	"github.com/devblok/camvis/utility/kar"
	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
)

func currentUserName() string {
	u, err := user.Current()
	if err != nil {
		return "unknown"
	}
	return u.Username
}

var (
	author   = flag.String("author", currentUserName(), "Set the author of the package when compressing")
	version  = flag.Int64("version", 1, "Archive version number to create it with")
	extract  = flag.String("e", "", "Extract the archive given")
	list     = flag.String("l", "", "List the files in the archive given")
	compress = flag.String("c", "", "Compress the given file/folder")
	dstFile  = flag.String("f", "out.kar", "Destination file when compressing")
	dstDir   = flag.String("d", ".", "Destination folder when extracting")
	silent   = flag.Bool("s", false, "Silent")
)

func main() {
	flag.Parse()
	if *silent {
		log.SetLevel(log.WarnLevel)
	}

	ops := 0
	for _, op := range []string{*extract, *list, *compress} {
		if op != "" {
			ops++
		}
	}
	if ops > 1 {
		log.Fatal("Only one operation at a time")
	}

	var err error
	switch {
	case *compress != "":
		err = compressFiles(*compress, *dstFile)
	case *extract != "":
		err = extractFiles(*extract, *dstDir)
	case *list != "":
		err = listFiles(*list)
	default:
		flag.PrintDefaults()
		return
	}
	if err != nil {
		log.WithError(err).Fatal("Failed")
	}
}

func compressFiles(src, dst string) error {
	if _, err := os.Stat(dst); err == nil {
		return errors.Errorf("destination file %s exists, will not overwrite", dst)
	}

	builder := kar.NewBuilder(kar.Header{
		Author:      *author,
		DateCreated: time.Now().Unix(),
		Version:     *version,
	})

	err := filepath.Walk(src, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		name, err := filepath.Rel(src, path)
		if err != nil {
			return err
		}
		if name == "." {
			name = filepath.Base(path)
		}

		data, err := ioutil.ReadFile(path)
		if err != nil {
			return err
		}
		log.WithField("file", name).Info("Adding")
		return builder.Add(filepath.ToSlash(name), data)
	})
	if err != nil {
		return err
	}

	f, err := os.Create(dst)
	if err != nil {
		return err
	}
	written, err := builder.WriteTo(f)
	if err != nil {
		f.Close()
		return err
	}
	log.WithFields(log.Fields{
		"files": builder.Len(),
		"bytes": written,
	}).Info("Archive written")
	return f.Close()
}

func extractFiles(src, dst string) error {
	ar, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer ar.Close()

	for _, name := range ar.List() {
		data, err := ar.ReadAll(name)
		if err != nil {
			return err
		}
		path := filepath.Join(dst, filepath.FromSlash(name))
		if rel, err := filepath.Rel(dst, path); err != nil || strings.HasPrefix(rel, "..") {
			return errors.Errorf("refusing to extract %s outside of %s", name, dst)
		}
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return err
		}
		if err := ioutil.WriteFile(path, data, 0644); err != nil {
			return err
		}
		log.WithField("file", path).Info("Extracted")
	}
	return nil
}

func listFiles(src string) error {
	ar, err := kar.OpenFile(src)
	if err != nil {
		return err
	}
	defer ar.Close()

	header := ar.Header()
	for _, e := range header.Index {
		fmt.Printf("%8d %8d %s\n", e.Size, e.CompressedSize, e.Name)
	}
	return nil
}
