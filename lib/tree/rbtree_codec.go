package tree

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"math"
	"reflect"
	"strconv"
	"strings"

	"github.com/benz9527/xrbt/lib/infra"
)

// Canonical text form of a tree, one line per node in preorder:
//
//	key;color;leftKey;rightKey
//
// color is red or black (r and b are accepted on input), an absent
// child is written as null. Every line ends with '\n' and the empty
// tree is the empty text.

const nullKey = "null"

var (
	ErrMalformedLine = errors.New("[rbtree] malformed line")
	ErrUnknownColor  = errors.New("[rbtree] unknown color")
	ErrMalformedKey  = errors.New("[rbtree] malformed key")
	ErrChildMismatch = errors.New("[rbtree] child key mismatch")
	ErrMissingNode   = errors.New("[rbtree] missing node line")
	ErrTrailingLines = errors.New("[rbtree] trailing lines")
	ErrInvalidTree   = errors.New("[rbtree] invalid tree")
	ErrUnorderedKey  = errors.New("[rbtree] NaN is not an ordered key")
)

// ParseError reports the 1-based input line a decode failed at.
type ParseError struct {
	Line int
	Text string
	Err  error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("%s at line %d: %q", e.Err, e.Line, e.Text)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

// KeyCodec converts keys to and from their raw text. Quoting of
// ambiguous text is done by the line codec.
type KeyCodec[K infra.OrderedKey] interface {
	EncodeKey(key K) string
	DecodeKey(text string) (K, error)
}

type kindKeyCodec[K infra.OrderedKey] struct{}

// DefaultKeyCodec formats keys with strconv by their underlying kind,
// so named key types work as well.
func DefaultKeyCodec[K infra.OrderedKey]() KeyCodec[K] {
	return kindKeyCodec[K]{}
}

func (kindKeyCodec[K]) EncodeKey(key K) string {
	rv := reflect.ValueOf(key)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return strconv.FormatInt(rv.Int(), 10)
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return strconv.FormatUint(rv.Uint(), 10)
	case reflect.Float32, reflect.Float64:
		return strconv.FormatFloat(rv.Float(), 'g', -1, rv.Type().Bits())
	case reflect.String:
		return rv.String()
	default:
		// impossible run to here
		return fmt.Sprint(key)
	}
}

func (kindKeyCodec[K]) DecodeKey(text string) (key K, err error) {
	rv := reflect.ValueOf(&key).Elem()
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		var n int64
		if n, err = strconv.ParseInt(text, 10, rv.Type().Bits()); err == nil {
			rv.SetInt(n)
		}
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		var n uint64
		if n, err = strconv.ParseUint(text, 10, rv.Type().Bits()); err == nil {
			rv.SetUint(n)
		}
	case reflect.Float32, reflect.Float64:
		var f float64
		if f, err = strconv.ParseFloat(text, rv.Type().Bits()); err == nil && math.IsNaN(f) {
			err = ErrUnorderedKey
		}
		if err == nil {
			rv.SetFloat(f)
		}
	case reflect.String:
		rv.SetString(text)
	default:
		err = fmt.Errorf("unsupported key kind %s", rv.Kind())
	}
	return key, err
}

func needsQuote(text string) bool {
	return text == "" ||
		text == nullKey ||
		text[0] == '"' ||
		strings.TrimSpace(text) != text ||
		strings.ContainsAny(text, ";\n\r")
}

func (tree *rbTree[K]) keyText(key K) string {
	text := tree.codec.EncodeKey(key)
	if needsQuote(text) {
		return strconv.Quote(text)
	}
	return text
}

func (tree *rbTree[K]) childText(child *rbNode[K]) string {
	if child == nil {
		return nullKey
	}
	return tree.keyText(child.key)
}

func (tree *rbTree[K]) Serialize() string {
	var sb strings.Builder
	_ = tree.Encode(&sb)
	return sb.String()
}

func (tree *rbTree[K]) Encode(w io.Writer) error {
	bw := bufio.NewWriter(w)
	for _, n := range tree.ToArray() {
		node := n.(*rbNode[K])
		if _, err := fmt.Fprintf(bw, "%s;%s;%s;%s\n",
			tree.keyText(node.key),
			colorText(node.color),
			tree.childText(node.left),
			tree.childText(node.right),
		); err != nil {
			return err
		}
	}
	return bw.Flush()
}

type nodeLine[K infra.OrderedKey] struct {
	no    int
	text  string
	key   K
	color RBColor
	left  *K
	right *K
}

// splitFields cuts a line into its fields. A field may be a Go quoted
// string which is free to contain the separator.
func splitFields(line string) ([]string, error) {
	fields := make([]string, 0, 4)
	for rest := line; ; {
		rest = strings.TrimLeft(rest, " \t")
		var field string
		if strings.HasPrefix(rest, `"`) {
			quoted, err := strconv.QuotedPrefix(rest)
			if err != nil {
				return nil, ErrMalformedKey
			}
			field, rest = quoted, strings.TrimLeft(rest[len(quoted):], " \t")
			if rest != "" && rest[0] != ';' {
				return nil, ErrMalformedLine
			}
		} else if idx := strings.IndexByte(rest, ';'); idx >= 0 {
			field, rest = strings.TrimSpace(rest[:idx]), rest[idx:]
		} else {
			field, rest = strings.TrimSpace(rest), ""
		}
		fields = append(fields, field)
		if rest == "" {
			return fields, nil
		}
		rest = rest[1:]
	}
}

func parseColor(text string) (RBColor, error) {
	switch strings.ToLower(text) {
	case "red", "r":
		return Red, nil
	case "black", "b":
		return Black, nil
	default:
		return Black, ErrUnknownColor
	}
}

func (tree *rbTree[K]) parseKey(field string) (key K, err error) {
	text := field
	if strings.HasPrefix(field, `"`) {
		if text, err = strconv.Unquote(field); err != nil {
			return key, ErrMalformedKey
		}
	} else if field == "" || field == nullKey {
		return key, ErrMalformedKey
	}
	if key, err = tree.codec.DecodeKey(text); err != nil {
		return key, fmt.Errorf("%w: %w", ErrMalformedKey, err)
	}
	return key, nil
}

func (tree *rbTree[K]) parseChild(field string) (*K, error) {
	if field == nullKey {
		return nil, nil
	}
	key, err := tree.parseKey(field)
	if err != nil {
		return nil, err
	}
	return &key, nil
}

func (tree *rbTree[K]) parseLine(no int, text string) (*nodeLine[K], error) {
	fields, err := splitFields(text)
	if err == nil && len(fields) != 4 {
		err = ErrMalformedLine
	}
	if err != nil {
		return nil, &ParseError{Line: no, Text: text, Err: err}
	}

	line := &nodeLine[K]{no: no, text: text}
	if line.key, err = tree.parseKey(fields[0]); err != nil {
		return nil, &ParseError{Line: no, Text: text, Err: err}
	}
	if line.color, err = parseColor(fields[1]); err != nil {
		return nil, &ParseError{Line: no, Text: text, Err: err}
	}
	if line.left, err = tree.parseChild(fields[2]); err != nil {
		return nil, &ParseError{Line: no, Text: text, Err: err}
	}
	if line.right, err = tree.parseChild(fields[3]); err != nil {
		return nil, &ParseError{Line: no, Text: text, Err: err}
	}
	return line, nil
}

type treeDecoder[K infra.OrderedKey] struct {
	tree  *rbTree[K]
	lines []*nodeLine[K]
	next  int
}

// build consumes the next line as the subtree root. want is the key
// the parent line announced for it.
func (d *treeDecoder[K]) build(want *K, parent *nodeLine[K]) (*rbNode[K], error) {
	if d.next >= len(d.lines) {
		return nil, &ParseError{
			Line: parent.no,
			Text: parent.text,
			Err:  fmt.Errorf("%w: %s", ErrMissingNode, d.tree.keyText(*want)),
		}
	}
	line := d.lines[d.next]
	d.next++
	if want != nil && d.tree.cmp(*want, line.key) != 0 {
		return nil, &ParseError{
			Line: line.no,
			Text: line.text,
			Err:  fmt.Errorf("%w: line %d expects %s", ErrChildMismatch, parent.no, d.tree.keyText(*want)),
		}
	}

	node := &rbNode[K]{key: line.key, color: line.color}
	var err error
	if line.left != nil {
		if node.left, err = d.build(line.left, line); err != nil {
			return nil, err
		}
	}
	if line.right != nil {
		if node.right, err = d.build(line.right, line); err != nil {
			return nil, err
		}
	}
	d.tree.count++
	return node, nil
}

// Decode reads a canonical text tree. Blank lines and the whitespace
// around fields are ignored. The rebuilt tree must satisfy every
// red-black invariant, otherwise ErrInvalidTree is returned.
func Decode[K infra.OrderedKey](r io.Reader, opts ...RBTreeOpt[K]) (RBTree[K], error) {
	tree := newRBTree[K](opts...)
	d := &treeDecoder[K]{tree: tree}

	br := bufio.NewReader(r)
	for no := 1; ; no++ {
		raw, readErr := br.ReadString('\n')
		if readErr != nil && !errors.Is(readErr, io.EOF) {
			return nil, &ParseError{Line: no, Err: readErr}
		}
		if text := strings.TrimSpace(raw); text != "" {
			line, err := tree.parseLine(no, text)
			if err != nil {
				return nil, err
			}
			d.lines = append(d.lines, line)
		}
		if readErr != nil {
			break
		}
	}
	if len(d.lines) == 0 {
		return tree, nil
	}

	root, err := d.build(nil, nil)
	if err != nil {
		return nil, err
	}
	if d.next < len(d.lines) {
		line := d.lines[d.next]
		return nil, &ParseError{Line: line.no, Text: line.text, Err: ErrTrailingLines}
	}
	tree.root = root

	if err = Validate[K](tree); err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidTree, err)
	}
	return tree, nil
}

func Deserialize[K infra.OrderedKey](text string, opts ...RBTreeOpt[K]) (RBTree[K], error) {
	return Decode[K](strings.NewReader(text), opts...)
}
