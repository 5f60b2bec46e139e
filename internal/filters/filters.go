// 包 filters：级联多选筛选（如 城市 → 区县 → 坊），保证各维度可选项与其他维度的当前选择一致
package filters

import (
	"context"
	"errors"
	"fmt"

	"demographic-map/internal/dataset"
	"demographic-map/internal/logger"
	"demographic-map/internal/metrics"
	"demographic-map/internal/session"
)

// StateKey：FilterState 在会话存储中的键
const StateKey = "filters"

var (
	// ErrUnknownDimension：维度名不是数据集的列，属于配置错误
	ErrUnknownDimension = errors.New("unknown filter dimension")
	// ErrNotCategorical：维度列不是字符串列
	ErrNotCategorical = errors.New("filter dimension is not categorical")
)

// Store：级联筛选存储
// 背景：数据集只读共享；每个会话的选择状态只存在于注入的 session.KV 中，因此并发会话天然隔离。
// 约束：维度顺序即协调顺序；构造时校验维度，未知维度直接报错，不做容错。
type Store struct {
	ds   *dataset.Table
	dims []string
	kv   session.KV
}

// New：绑定数据集与会话存储并校验维度
func New(ds *dataset.Table, kv session.KV, dims ...string) (*Store, error) {
	if ds == nil {
		return nil, errors.New("filters: nil dataset")
	}
	if kv == nil {
		return nil, errors.New("filters: nil session store")
	}
	if len(dims) == 0 {
		return nil, errors.New("filters: no dimensions")
	}
	seen := make(map[string]struct{}, len(dims))
	for _, d := range dims {
		if _, dup := seen[d]; dup {
			return nil, fmt.Errorf("filters: dimension %q declared twice", d)
		}
		seen[d] = struct{}{}
		k, ok := ds.KindOf(d)
		if !ok {
			return nil, fmt.Errorf("%w: %q (columns: %v)", ErrUnknownDimension, d, ds.Columns())
		}
		if k != dataset.String {
			return nil, fmt.Errorf("%w: %q", ErrNotCategorical, d)
		}
	}
	return &Store{ds: ds, dims: append([]string(nil), dims...), kv: kv}, nil
}

// Dimensions：维度（声明顺序）
func (s *Store) Dimensions() []string { return append([]string(nil), s.dims...) }

// Dataset：绑定的数据表
func (s *Store) Dataset() *dataset.Table { return s.ds }

// Initialize：会话内尚无状态时创建空选择；已存在时不做任何修改
func (s *Store) Initialize(ctx context.Context, sid string) (*State, error) {
	b, err := s.kv.Get(ctx, sid, StateKey)
	if err == nil {
		st, err := unmarshalState(b)
		if err == nil {
			return s.conform(ctx, sid, st)
		}
		logger.L().Warn("filters_state_corrupt", "sid", sid, "err", err)
	} else if !errors.Is(err, session.ErrNotFound) {
		return nil, fmt.Errorf("load filter state: %w", err)
	}
	st := newState(s.dims)
	if err := s.save(ctx, sid, st); err != nil {
		return nil, err
	}
	logger.L().Debug("filters_state_init", "sid", sid, "dims", s.dims)
	return st, nil
}

// conform：维度配置变化（如重新部署后）时对齐已有状态，丢弃未知维度、补齐缺失维度
func (s *Store) conform(ctx context.Context, sid string, st *State) (*State, error) {
	same := len(st.Dimensions) == len(s.dims)
	for i := 0; same && i < len(s.dims); i++ {
		same = st.Dimensions[i] == s.dims[i]
	}
	if same && st.Selections != nil {
		for _, d := range s.dims {
			st.Selections[d] = normalize(st.Selections[d])
		}
		return st, nil
	}
	fixed := newState(s.dims)
	for _, d := range s.dims {
		fixed.Selections[d] = normalize(st.Selections[d])
	}
	logger.L().Info("filters_state_conformed", "sid", sid, "from", st.Dimensions, "to", s.dims)
	if err := s.save(ctx, sid, fixed); err != nil {
		return nil, err
	}
	return fixed, nil
}

func (s *Store) save(ctx context.Context, sid string, st *State) error {
	b, err := st.marshal()
	if err != nil {
		return fmt.Errorf("encode filter state: %w", err)
	}
	if err := s.kv.Set(ctx, sid, StateKey, b); err != nil {
		return fmt.Errorf("save filter state: %w", err)
	}
	return nil
}

// FilteredView：按状态过滤数据集；except 非空时跳过该维度自身的约束
// 约束：空选择不构成约束；无副作用。
func (s *Store) FilteredView(st *State, except string) dataset.View {
	v := s.ds.All()
	for _, d := range s.dims {
		if d == except {
			continue
		}
		v = v.Where(d, st.Selections[d])
	}
	return v
}

// View：读取会话状态并返回完全过滤后的视图
func (s *Store) View(ctx context.Context, sid string) (dataset.View, *State, error) {
	st, err := s.Initialize(ctx, sid)
	if err != nil {
		return dataset.View{}, nil, err
	}
	return s.FilteredView(st, ""), st, nil
}

// Result：一次协调的结果
type Result struct {
	State   *State              `json:"state"`
	Options map[string][]string `json:"options"`
	Pruned  map[string][]string `json:"pruned,omitempty"`
	Changed bool                `json:"changed"`
	Passes  int                 `json:"passes"`
}

// Reconcile：按声明顺序逐维度重算可选项、剔除失效选择并应用用户输入
// 背景：单遍固定顺序处理；后处理维度的变化可能使先处理维度的选择失效，留待下一轮（Changed=true 时调用方应刷新）。
// 参数：input 为用户本次提交的选择，仅包含变更的维度；nil 表示无输入。
// 异常：input 含未知维度返回 ErrUnknownDimension，状态不做修改。
func (s *Store) Reconcile(ctx context.Context, sid string, input map[string][]string) (*Result, error) {
	for d := range input {
		if !s.known(d) {
			return nil, fmt.Errorf("%w: %q", ErrUnknownDimension, d)
		}
	}
	cur, err := s.Initialize(ctx, sid)
	if err != nil {
		return nil, err
	}
	st := cur.clone()
	res := &Result{State: st, Options: make(map[string][]string, len(s.dims)), Passes: 1}
	// settled：只应用本轮已处理维度的选择，用于约束本维度的用户输入
	settled := s.ds.All()
	for _, d := range s.dims {
		options := s.FilteredView(st, d).Distinct(d)
		kept, dropped := keep(st.Selections[d], options)
		if len(dropped) > 0 {
			st.Selections[d] = kept
			res.Changed = true
			if res.Pruned == nil {
				res.Pruned = make(map[string][]string)
			}
			res.Pruned[d] = dropped
			metrics.PrunedSelectionsTotal.WithLabelValues(d).Add(float64(len(dropped)))
			logger.L().Info("filters_pruned", "sid", sid, "dimension", d, "values", dropped)
		}
		res.Options[d] = options
		if sel, ok := input[d]; ok {
			sel = s.offered(sid, d, s.existing(d, normalize(sel)), settled.Distinct(d))
			if !equalSets(sel, st.Selections[d]) {
				st.Selections[d] = sel
				res.Changed = true
			}
		}
		settled = settled.Where(d, st.Selections[d])
	}
	metrics.ReconcileTotal.Inc()
	if res.Changed {
		metrics.ReconcileChangedTotal.Inc()
		if err := s.save(ctx, sid, st); err != nil {
			return nil, err
		}
	}
	logger.L().Debug("filters_reconciled", "sid", sid, "changed", res.Changed)
	return res, nil
}

// Settle：重复协调直到状态稳定（Changed=false）或达到轮数上限
// 背景：非交互调用方没有宿主 UI 的自动重跑，需在一次请求内收敛。
// 返回：Changed 表示任一轮发生变化；Options 为最后一轮（稳定状态）的可选项。
func (s *Store) Settle(ctx context.Context, sid string, input map[string][]string) (*Result, error) {
	res, err := s.Reconcile(ctx, sid, input)
	if err != nil {
		return nil, err
	}
	// 无输入的轮次只会剔除，每轮至少剔除一个值，故以选中值总数为上界
	maxPasses := 2
	for _, d := range s.dims {
		maxPasses += len(res.State.Selections[d])
	}
	changed := res.Changed
	pruned := res.Pruned
	passes := 1
	for res.Changed && passes < maxPasses {
		res, err = s.Reconcile(ctx, sid, nil)
		if err != nil {
			return nil, err
		}
		passes++
		for d, vals := range res.Pruned {
			if pruned == nil {
				pruned = make(map[string][]string)
			}
			pruned[d] = append(pruned[d], vals...)
		}
	}
	if res.Changed {
		logger.L().Warn("filters_not_settled", "sid", sid, "passes", passes)
	}
	res.Changed = changed
	res.Pruned = pruned
	res.Passes = passes
	return res, nil
}

// Reset：删除会话内的全部筛选状态，所有维度回到不约束
func (s *Store) Reset(ctx context.Context, sid string) error {
	if err := s.kv.Delete(ctx, sid, StateKey); err != nil {
		return fmt.Errorf("reset filter state: %w", err)
	}
	metrics.FilterResetsTotal.Inc()
	logger.L().Info("filters_reset", "sid", sid)
	return nil
}

func (s *Store) known(d string) bool {
	for _, x := range s.dims {
		if x == d {
			return true
		}
	}
	return false
}

// existing：丢弃数据集中根本不存在的值
func (s *Store) existing(d string, vals []string) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		if s.ds.Contains(d, v) {
			out = append(out, v)
		} else {
			logger.L().Info("filters_input_unknown_value", "dimension", d, "value", v)
		}
	}
	return out
}

// offered：丢弃与先处理维度的选择相冲突的输入值（界面上这些值不会出现在候选项中）
// 约束：只看先处理的维度；与后处理维度旧选择的冲突由后者在本轮被剔除解决。
func (s *Store) offered(sid, d string, vals, allowed []string) []string {
	kept, dropped := keep(vals, allowed)
	if len(dropped) > 0 {
		logger.L().Info("filters_input_not_offered", "sid", sid, "dimension", d, "values", dropped)
	}
	return kept
}
