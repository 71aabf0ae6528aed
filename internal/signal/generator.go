package signal

import (
	"github.com/assist-by/strategylab/internal/domain"
	"github.com/assist-by/strategylab/internal/indicator"
)

// Generate는 프레임의 모든 봉에서 매수/매도 집합을 평가합니다.
// 매수 집합이 참이면 BUY, 매도 집합이 참이면 SELL이며
// 같은 봉에서는 SELL이 BUY보다 우선합니다.
func Generate(f *indicator.Frame, buy, sell ConditionSet) []domain.Action {
	actions := make([]domain.Action, f.Len())
	for t := range actions {
		if buy.Evaluate(f, t) {
			actions[t] = domain.Buy
		}
		if sell.Evaluate(f, t) {
			actions[t] = domain.Sell
		}
	}
	return actions
}
