package transform

import (
	"encoding/json"
	"errors"
	"io"
	"regexp"
	"strconv"
	"strings"
)

var markupTag = regexp.MustCompile(`<.*?>`)

var (
	errNotObject    = errors.New("grid value is not a JSON object")
	errTrailingData = errors.New("unexpected data after grid object")
)

// ExtractGridText flattens a grid JSON block to plain text: every primitive
// "value" member at any depth, joined by spaces, with markup tags removed
// and whitespace collapsed. Malformed input yields "".
func ExtractGridText(raw string) string {
	values, err := gridValues(raw)
	if err != nil {
		return ""
	}

	text := strings.Join(values, " ")
	text = markupTag.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, `\n`, " ")
	return strings.Join(strings.Fields(text), " ")
}

// gridValues walks the document in order, collecting "value" members.
// The top level must be an object.
func gridValues(raw string) ([]string, error) {
	dec := json.NewDecoder(strings.NewReader(raw))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, err
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, errNotObject
	}

	var values []string
	if err := walkObject(dec, &values); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errTrailingData
	}
	return values, nil
}

func walkObject(dec *json.Decoder, values *[]string) error {
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, _ := tok.(string)
		if err := walkValue(dec, key == "value", values); err != nil {
			return err
		}
	}
	_, err := dec.Token() // '}'
	return err
}

func walkArray(dec *json.Decoder, values *[]string) error {
	for dec.More() {
		if err := walkValue(dec, false, values); err != nil {
			return err
		}
	}
	_, err := dec.Token() // ']'
	return err
}

func walkValue(dec *json.Decoder, collect bool, values *[]string) error {
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	switch t := tok.(type) {
	case json.Delim:
		if t == '{' {
			return walkObject(dec, values)
		}
		return walkArray(dec, values)
	case string:
		if collect {
			*values = append(*values, t)
		}
	case json.Number:
		if collect {
			*values = append(*values, t.String())
		}
	case bool:
		if collect {
			*values = append(*values, strconv.FormatBool(t))
		}
	}
	return nil
}
