// Copyright (c) 2019 devblok
//
// This software is released under the MIT License.
// https://opensource.org/licenses/MIT

package kar_test

import (
	"bytes"
	"io/ioutil"
	"testing"
	"time"

	"github.com/devblok/camvis/utility/kar"
	"github.com/pkg/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	testString1 = "idunvovkjnreovmegihjbrqlkmfrjnb"
	testString2 = "idunvovkjnreovmsdvwrvnervnreegihjbrqlkmfrjnb"
)

func buildArchive(t *testing.T) []byte {
	builder := kar.NewBuilder(kar.Header{
		Author:      "devblok",
		DateCreated: time.Now().Unix(),
		Version:     1,
	})
	require.NoError(t, builder.Add("test", []byte(testString1)))
	require.NoError(t, builder.Add("dir/test2", []byte(testString2)))
	require.NoError(t, builder.Add("empty", nil))
	assert.Equal(t, 3, builder.Len())

	buf := bytes.NewBuffer([]byte{})
	written, err := builder.WriteTo(buf)
	require.NoError(t, err)
	assert.Equal(t, int64(buf.Len()), written)
	return buf.Bytes()
}

func TestCreateAndReadAll(t *testing.T) {
	ar, err := kar.Open(bytes.NewReader(buildArchive(t)))
	require.NoError(t, err)

	assert.Equal(t, []string{"test", "dir/test2", "empty"}, ar.List())
	assert.Equal(t, "devblok", ar.Header().Author)
	assert.Equal(t, int64(1), ar.Header().Version)

	data, err := ar.ReadAll("test")
	require.NoError(t, err)
	assert.Equal(t, testString1, string(data))

	data, err = ar.Find("dir/test2")
	require.NoError(t, err)
	assert.Equal(t, testString2, string(data))

	data, err = ar.ReadAll("empty")
	require.NoError(t, err)
	assert.Empty(t, data)
}

func TestCreateAndStream(t *testing.T) {
	ar, err := kar.Open(bytes.NewReader(buildArchive(t)))
	require.NoError(t, err)

	r, err := ar.Open("dir/test2")
	require.NoError(t, err)
	data, err := ioutil.ReadAll(r)
	require.NoError(t, err)
	assert.Equal(t, testString2, string(data))
}

func TestMissingFile(t *testing.T) {
	ar, err := kar.Open(bytes.NewReader(buildArchive(t)))
	require.NoError(t, err)

	_, err = ar.ReadAll("nope")
	assert.True(t, errors.Is(err, kar.ErrNotFound))
	_, err = ar.Open("nope")
	assert.True(t, errors.Is(err, kar.ErrNotFound))
}

func TestDuplicateFile(t *testing.T) {
	builder := kar.NewBuilder(kar.Header{Version: 1})
	require.NoError(t, builder.Add("test", []byte(testString1)))
	assert.Error(t, builder.Add("test", []byte(testString2)))
	assert.Equal(t, 1, builder.Len())
}

func TestBuilderIgnoresGivenIndex(t *testing.T) {
	builder := kar.NewBuilder(kar.Header{
		Index: []kar.IndexEntry{{Name: "ghost", Size: 10}},
	})
	require.NoError(t, builder.Add("test", []byte(testString1)))

	buf := bytes.NewBuffer([]byte{})
	_, err := builder.WriteTo(buf)
	require.NoError(t, err)

	ar, err := kar.Open(bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, []string{"test"}, ar.List())
}
