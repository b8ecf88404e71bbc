package binding

import (
	"strconv"
	"strings"

	"github.com/spf13/cast"
)

// Attribute is a Wren attribute attached to a module, class or method.
// Attributes sharing a Group and runtime flag render as one group.
type Attribute struct {
	Group   string
	Key     string
	Value   any
	Runtime bool
}

// Attr returns an attribute without a group. A nil value renders the bare key.
func Attr(key string, value any) Attribute {
	return Attribute{Key: key, Value: value}
}

// GroupAttr returns an attribute inside group.
func GroupAttr(group, key string, value any) Attribute {
	return Attribute{Group: group, Key: key, Value: value}
}

// AtRuntime marks the attribute as readable from scripts (#!key).
func (a Attribute) AtRuntime() Attribute {
	a.Runtime = true
	return a
}

// writeAttributes renders attrs at the given indent depth. Nothing is written
// for an empty list; otherwise the block starts on a fresh line.
func writeAttributes(b *strings.Builder, attrs []Attribute, indent int) {
	if len(attrs) == 0 {
		return
	}
	b.WriteByte('\n')

	used := make([]bool, len(attrs))
	for i, a := range attrs {
		if used[i] {
			continue
		}
		used[i] = true

		writeIndent(b, indent)
		b.WriteByte('#')
		if a.Runtime {
			b.WriteByte('!')
		}
		if a.Group == "" {
			writeAttribute(b, a)
			b.WriteByte('\n')
			continue
		}

		members := []Attribute{a}
		for j := i + 1; j < len(attrs); j++ {
			if !used[j] && attrs[j].Group == a.Group && attrs[j].Runtime == a.Runtime {
				used[j] = true
				members = append(members, attrs[j])
			}
		}

		b.WriteString(a.Group)
		b.WriteString("(\n")
		for j, m := range members {
			writeIndent(b, indent+1)
			writeAttribute(b, m)
			if j+1 < len(members) {
				b.WriteByte(',')
			}
			b.WriteByte('\n')
		}
		writeIndent(b, indent)
		b.WriteString(")\n")
	}
}

func writeAttribute(b *strings.Builder, a Attribute) {
	b.WriteString(a.Key)
	if a.Value == nil {
		return
	}
	b.WriteString(" = ")
	b.WriteString(attributeValue(a.Value))
}

func attributeValue(v any) string {
	switch v := v.(type) {
	case bool:
		return strconv.FormatBool(v)
	case string:
		return strconv.Quote(v)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil {
		return strconv.Quote(cast.ToString(v))
	}
	return strconv.FormatFloat(f, 'g', -1, 64)
}

func writeIndent(b *strings.Builder, n int) {
	for range n {
		b.WriteByte('\t')
	}
}
