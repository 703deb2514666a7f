package processor

import (
	"github.com/go-gota/gota/series"
	"golang.org/x/text/cases"
)

// Placeholders 表示"未知"的占位值集合，比较时忽略大小写
type Placeholders struct {
	tokens map[string]struct{}
}

func NewPlaceholders(tokens []string) *Placeholders {
	p := &Placeholders{tokens: make(map[string]struct{}, len(tokens))}
	for _, t := range tokens {
		p.tokens[fold(t)] = struct{}{}
	}
	return p
}

// Is 判断字符串是否为占位值
func (p *Placeholders) Is(s string) bool {
	_, ok := p.tokens[fold(s)]
	return ok
}

// Missing 缺失值：NA 或占位值
func (p *Placeholders) Missing(e series.Element) bool {
	if e.IsNA() {
		return true
	}
	if e.Type() != series.String {
		return false
	}
	return p.Is(e.String())
}

// fold 大小写折叠；cases.Caser 有状态，不能跨goroutine共享，每次新建
func fold(s string) string {
	if s == "" {
		return s
	}
	return cases.Fold().String(s)
}
