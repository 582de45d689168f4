package bot

import (
	"sort"
	"strings"
	"sync"
	"time"

	"offramp-assistant/internal/core/nearby"
	"offramp-assistant/internal/core/swap"
)

// Flow 對話狀態，值域封閉
type Flow string

const (
	FlowIdle            Flow = "idle"
	FlowReplaceWaitDish Flow = "replace_wait_dish"
	FlowReplaceRefining Flow = "replace_refining"
	FlowFindWaitArea    Flow = "find_wait_area"
	FlowFindWaitRule    Flow = "find_wait_rule"
	FlowFindResults     Flow = "find_results"
	FlowSetRules        Flow = "set_rules"
	FlowAllergy         Flow = "allergy"
	FlowAllergyOther    Flow = "allergy_other"
	FlowWizardWaitImage Flow = "dish_wizard_wait_image"
	FlowWizardReview    Flow = "dish_wizard_review"
	FlowWizardTypeName  Flow = "dish_wizard_type_name"
)

// Preferences 使用者的長期偏好，跨流程保留
type Preferences struct {
	Diet         string
	Taste        string
	Budget       string
	Area         string
	Restrictions map[string]bool
	Allergies    map[string]bool
}

// RestrictionList 排序後的限制清單
func (p *Preferences) RestrictionList() []string {
	return sortedKeys(p.Restrictions)
}

// AllergyList 排序後的過敏原清單
func (p *Preferences) AllergyList() []string {
	return sortedKeys(p.Allergies)
}

// AddRestriction 新增飲食限制
func (p *Preferences) AddRestriction(name string) {
	if p.Restrictions == nil {
		p.Restrictions = make(map[string]bool)
	}
	p.Restrictions[strings.ToLower(strings.TrimSpace(name))] = true
}

// AddAllergy 新增過敏原
func (p *Preferences) AddAllergy(name string) {
	if p.Allergies == nil {
		p.Allergies = make(map[string]bool)
	}
	p.Allergies[strings.ToLower(strings.TrimSpace(name))] = true
}

func sortedKeys(m map[string]bool) []string {
	out := make([]string, 0, len(m))
	for k := range m {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

// FindPending 附近搜尋流程的暫存狀態
type FindPending struct {
	FocusDish string
	Results   []nearby.Place
	Signature string
	Live      bool
}

// AllergyPending 過敏流程結束後要返回的流程
type AllergyPending struct {
	ReturnFlow Flow
}

// WizardState 菜色精靈的辨識結果暫存
type WizardState struct {
	LastPhotoID        string
	Dish               string
	VegStatus          string
	Confidence         float64
	RecommendationType string
	Recommendations    []swap.Swap
	Evidence           []string
	Cuisine            string
}

// Reset 清空辨識結果
func (w *WizardState) Reset() {
	*w = WizardState{}
}

// Session 單一使用者的對話狀態
type Session struct {
	Flow            Flow
	Step            int
	Prefs           Preferences
	LastDish        string
	LastSwapSummary string
	Find            *FindPending
	Allergy         *AllergyPending
	Wizard          WizardState
	LastInteraction time.Time
}

// ClearPending 清空流程暫存，偏好與辨識結果以外的欄位歸零
func (s *Session) ClearPending() {
	s.Find = nil
	s.Allergy = nil
}

// FocusDish 目前關注的菜色，附近搜尋用來帶入文案
func (s *Session) FocusDish() string {
	if s.Find != nil {
		return s.Find.FocusDish
	}
	return ""
}

type sessionEntry struct {
	mu      sync.Mutex
	session *Session
}

// Store 進程內的會話存放，對同一發送者的處理序列化，
// 不同發送者可並行
type Store struct {
	mu      sync.Mutex
	entries map[string]*sessionEntry
}

// NewStore 創建會話存放
func NewStore() *Store {
	return &Store{entries: make(map[string]*sessionEntry)}
}

// With 取得發送者的會話並在持有其鎖的情況下執行 fn
func (s *Store) With(sender string, fn func(*Session)) {
	s.mu.Lock()
	entry, ok := s.entries[sender]
	if !ok {
		entry = &sessionEntry{session: &Session{Flow: FlowIdle}}
		s.entries[sender] = entry
	}
	s.mu.Unlock()

	entry.mu.Lock()
	defer entry.mu.Unlock()
	entry.session.LastInteraction = time.Now().UTC()
	fn(entry.session)
}

// Len 目前存放的會話數
func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}
