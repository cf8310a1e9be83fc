package service

import workerpool "github.com/okian/kartscore/internal/adapters/mq/worker"

// WithScorer replaces the session scorer.
func WithScorer(sc workerpool.Scorer) Option {
	return func(s *Service) {
		s.scorer = sc
	}
}
