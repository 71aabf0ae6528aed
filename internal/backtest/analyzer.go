package backtest

import "github.com/assist-by/strategylab/internal/position"

// Analyzer는 시뮬레이션 결과를 결과 통계로 요약합니다
type Analyzer interface {
	Analyze(out *position.Outcome, result *Result)
}

// LedgerAnalyzer는 실현 거래의 퍼센트 통계를 계산합니다
type LedgerAnalyzer struct{}

// Analyze는 result.Statistics를 채웁니다
func (LedgerAnalyzer) Analyze(out *position.Outcome, result *Result) {
	stats := CalculateStats(out.Trades)
	result.Statistics = &stats
}

// EquityAnalyzer는 자산 곡선의 금액 지표를 계산합니다
type EquityAnalyzer struct{}

// Analyze는 result.Metrics를 채웁니다
func (EquityAnalyzer) Analyze(out *position.Outcome, result *Result) {
	metrics := CalculateMetrics(out)
	result.Metrics = &metrics
}

// AnalyzerFor는 시뮬레이션 모드에 맞는 분석기를 반환합니다
func AnalyzerFor(mode position.Mode) Analyzer {
	if mode == position.EquityCurveMode {
		return EquityAnalyzer{}
	}
	return LedgerAnalyzer{}
}
