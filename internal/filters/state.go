package filters

import (
	"encoding/json"
	"sort"
)

// State：各维度当前选中值集合
// 约束：维度集合在创建后固定；每个集合去重且按字典序保存，便于比较与序列化。
type State struct {
	Dimensions []string            `json:"dimensions"`
	Selections map[string][]string `json:"selections"`
}

func newState(dims []string) *State {
	st := &State{
		Dimensions: append([]string(nil), dims...),
		Selections: make(map[string][]string, len(dims)),
	}
	for _, d := range dims {
		st.Selections[d] = []string{}
	}
	return st
}

// Selected：维度的选中值副本
func (s *State) Selected(dim string) []string {
	return append([]string(nil), s.Selections[dim]...)
}

// Any：是否存在任一非空选择
func (s *State) Any() bool {
	for _, d := range s.Dimensions {
		if len(s.Selections[d]) > 0 {
			return true
		}
	}
	return false
}

func (s *State) clone() *State {
	c := &State{
		Dimensions: append([]string(nil), s.Dimensions...),
		Selections: make(map[string][]string, len(s.Selections)),
	}
	for k, v := range s.Selections {
		c.Selections[k] = append([]string{}, v...)
	}
	return c
}

func (s *State) marshal() ([]byte, error) { return json.Marshal(s) }

func unmarshalState(b []byte) (*State, error) {
	var st State
	if err := json.Unmarshal(b, &st); err != nil {
		return nil, err
	}
	return &st, nil
}

// normalize：去重并排序；nil 归一为空切片
func normalize(vals []string) []string {
	out := make([]string, 0, len(vals))
	seen := make(map[string]struct{}, len(vals))
	for _, v := range vals {
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	sort.Strings(out)
	return out
}

func equalSets(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// keep：保留 vals 中属于 options 的值（两者均已排序）；返回保留与被剔除的部分
func keep(vals, options []string) (kept, dropped []string) {
	set := make(map[string]struct{}, len(options))
	for _, o := range options {
		set[o] = struct{}{}
	}
	kept = []string{}
	for _, v := range vals {
		if _, ok := set[v]; ok {
			kept = append(kept, v)
		} else {
			dropped = append(dropped, v)
		}
	}
	return kept, dropped
}
