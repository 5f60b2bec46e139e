// 包 dataset：只读的行式数据表，按列存储；字符串列做字典编码以便快速做集合过滤与去重
package dataset

import (
	"errors"
	"fmt"
)

// Kind：列类型
type Kind int

const (
	String Kind = iota
	Number
)

func (k Kind) String() string {
	if k == Number {
		return "number"
	}
	return "string"
}

// Column：列定义
type Column struct {
	Name string
	Kind Kind
}

var (
	ErrUnknownColumn = errors.New("unknown column")
	ErrArity         = errors.New("row arity mismatch")
)

// Table：构建后不可变的数据表
// 背景：字符串列保存为 ID 数组 + 字典（ID -> 值），数值列保存为 float64 数组；过滤只比较整数 ID。
// 约束：Build 之后不再修改；多个会话可并发读取同一实例。
type Table struct {
	schema []Column
	pos    map[string]int
	ids    [][]int32
	dicts  [][]string
	codes  []map[string]int32
	nums   [][]float64
	n      int
}

// Builder：逐行追加并生成 Table
type Builder struct {
	t *Table
}

// NewBuilder：按列定义创建构建器；重复列名以后者为准会导致歧义，因此直接报错
func NewBuilder(cols ...Column) (*Builder, error) {
	t := &Table{
		schema: append([]Column(nil), cols...),
		pos:    make(map[string]int, len(cols)),
		ids:    make([][]int32, len(cols)),
		dicts:  make([][]string, len(cols)),
		codes:  make([]map[string]int32, len(cols)),
		nums:   make([][]float64, len(cols)),
	}
	for i, c := range cols {
		if c.Name == "" {
			return nil, fmt.Errorf("column %d: empty name", i)
		}
		if _, dup := t.pos[c.Name]; dup {
			return nil, fmt.Errorf("column %q: duplicated", c.Name)
		}
		t.pos[c.Name] = i
		if c.Kind == String {
			t.codes[i] = make(map[string]int32)
		}
	}
	return &Builder{t: t}, nil
}

// Append：追加一行，值的顺序与列定义一致
// 约束：字符串列接受 string；数值列接受 float64/float32/int/int64。
func (b *Builder) Append(vals ...any) error {
	t := b.t
	if len(vals) != len(t.schema) {
		return fmt.Errorf("%w: got %d values for %d columns", ErrArity, len(vals), len(t.schema))
	}
	for i, c := range t.schema {
		switch c.Kind {
		case String:
			s, ok := vals[i].(string)
			if !ok {
				return fmt.Errorf("column %q: want string, got %T", c.Name, vals[i])
			}
			id, ok := t.codes[i][s]
			if !ok {
				id = int32(len(t.dicts[i]))
				t.dicts[i] = append(t.dicts[i], s)
				t.codes[i][s] = id
			}
			t.ids[i] = append(t.ids[i], id)
		case Number:
			f, ok := toFloat(vals[i])
			if !ok {
				return fmt.Errorf("column %q: want number, got %T", c.Name, vals[i])
			}
			t.nums[i] = append(t.nums[i], f)
		}
	}
	t.n++
	return nil
}

// Build：返回构建完成的表；此后 Builder 不应再使用
func (b *Builder) Build() *Table {
	t := b.t
	b.t = nil
	return t
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int64:
		return float64(x), true
	case int32:
		return float64(x), true
	default:
		return 0, false
	}
}

// Len：行数
func (t *Table) Len() int { return t.n }

// Columns：列名（按定义顺序）
func (t *Table) Columns() []string {
	out := make([]string, len(t.schema))
	for i, c := range t.schema {
		out[i] = c.Name
	}
	return out
}

// KindOf：返回列类型；列不存在时 ok 为 false
func (t *Table) KindOf(col string) (Kind, bool) {
	i, ok := t.pos[col]
	if !ok {
		return 0, false
	}
	return t.schema[i].Kind, true
}

func (t *Table) HasColumn(col string) bool {
	_, ok := t.pos[col]
	return ok
}

// Contains：字符串列中是否出现过该值
func (t *Table) Contains(col, v string) bool {
	i, ok := t.pos[col]
	if !ok || t.codes[i] == nil {
		return false
	}
	_, ok = t.codes[i][v]
	return ok
}

// String：读取字符串单元格；列不存在或类型不符时返回空串
func (t *Table) String(row int, col string) string {
	i, ok := t.pos[col]
	if !ok || t.schema[i].Kind != String {
		return ""
	}
	return t.dicts[i][t.ids[i][row]]
}

// Float：读取数值单元格；列不存在或类型不符时返回 0
func (t *Table) Float(row int, col string) float64 {
	i, ok := t.pos[col]
	if !ok || t.schema[i].Kind != Number {
		return 0
	}
	return t.nums[i][row]
}

// All：覆盖全部行的视图
func (t *Table) All() View {
	rows := make([]int, t.n)
	for i := range rows {
		rows[i] = i
	}
	return View{t: t, rows: rows}
}

func (t *Table) stringColumn(col string) (int, error) {
	i, ok := t.pos[col]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrUnknownColumn, col)
	}
	if t.schema[i].Kind != String {
		return 0, fmt.Errorf("column %q is %s, not string", col, t.schema[i].Kind)
	}
	return i, nil
}
