// Package json allows for different implementations of JSON serializing. The
// gateway codec and the REST client both go through Default.
package json

import (
	"encoding/json"
	"io"

	jsoniter "github.com/json-iterator/go"
)

type Driver interface {
	Marshal(v interface{}) ([]byte, error)
	Unmarshal(data []byte, v interface{}) error

	DecodeStream(r io.Reader, v interface{}) error
	EncodeStream(w io.Writer, v interface{}) error
}

type DefaultDriver struct{}

func (d DefaultDriver) Marshal(v interface{}) ([]byte, error) {
	return json.Marshal(v)
}

func (d DefaultDriver) Unmarshal(data []byte, v interface{}) error {
	return json.Unmarshal(data, v)
}

func (d DefaultDriver) DecodeStream(r io.Reader, v interface{}) error {
	return json.NewDecoder(r).Decode(v)
}

func (d DefaultDriver) EncodeStream(w io.Writer, v interface{}) error {
	return json.NewEncoder(w).Encode(v)
}

// JsoniterDriver uses json-iterator configured to behave like encoding/json,
// so Marshaler and Unmarshaler implementations are honored.
type JsoniterDriver struct {
	API jsoniter.API
}

// NewJsoniterDriver creates a driver with the standard library compatible
// configuration.
func NewJsoniterDriver() JsoniterDriver {
	return JsoniterDriver{API: jsoniter.ConfigCompatibleWithStandardLibrary}
}

func (d JsoniterDriver) Marshal(v interface{}) ([]byte, error) {
	return d.API.Marshal(v)
}

func (d JsoniterDriver) Unmarshal(data []byte, v interface{}) error {
	return d.API.Unmarshal(data, v)
}

func (d JsoniterDriver) DecodeStream(r io.Reader, v interface{}) error {
	return d.API.NewDecoder(r).Decode(v)
}

func (d JsoniterDriver) EncodeStream(w io.Writer, v interface{}) error {
	return d.API.NewEncoder(w).Encode(v)
}

// Default is the default JSON driver, which uses encoding/json.
var Default Driver = DefaultDriver{}

// UseJsoniter switches Default to json-iterator.
func UseJsoniter() {
	Default = NewJsoniterDriver()
}

// Marshal uses the default driver.
func Marshal(v interface{}) ([]byte, error) {
	return Default.Marshal(v)
}

// Unmarshal uses the default driver.
func Unmarshal(data []byte, v interface{}) error {
	return Default.Unmarshal(data, v)
}

// DecodeStream uses the default driver.
func DecodeStream(r io.Reader, v interface{}) error {
	return Default.DecodeStream(r, v)
}

// EncodeStream uses the default driver.
func EncodeStream(w io.Writer, v interface{}) error {
	return Default.EncodeStream(w, v)
}
