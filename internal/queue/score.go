package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/OFFIS-RIT/ris/internal/util"
	"github.com/OFFIS-RIT/ris/pkg/common"
	"github.com/OFFIS-RIT/ris/pkg/logger"
	"github.com/OFFIS-RIT/ris/pkg/scoring"

	gonanoid "github.com/matoous/go-nanoid/v2"
)

// ErrInvalidMessage marks messages that will never succeed; the worker sends
// them straight to the dead-letter queue.
var ErrInvalidMessage = errors.New("invalid score message")

type QueuePairMsg struct {
	Head string `json:"head"`
	Tail string `json:"tail"`
	FP   string `json:"fp"`
}

type QueueScoreMsg struct {
	CorrelationID string         `json:"correlation_id"`
	Relation      string         `json:"relation"`
	Pairs         []QueuePairMsg `json:"pairs"`
	Sigma         *float64       `json:"sigma,omitempty"`
	Mu            *float64       `json:"mu,omitempty"`
	Theta         *float64       `json:"theta,omitempty"`
}

type QueueScoreResultMsg struct {
	CorrelationID string               `json:"correlation_id"`
	Relation      string               `json:"relation"`
	Records       []common.ScoreRecord `json:"records"`
	Summary       scoring.Suppression  `json:"summary"`
}

type ScoreCompletedEvent struct {
	CorrelationID string `json:"correlation_id"`
	Relation      string `json:"relation"`
	Pairs         int    `json:"pairs"`
	Accepted      int    `json:"accepted"`
}

// Scorer is implemented by *scoring.Engine.
type Scorer interface {
	Score(ctx context.Context, relation string, pairs []common.PredictedPair, params scoring.Params) ([]common.ScoreRecord, error)
	Options() scoring.Options
}

func (m QueueScoreMsg) predictedPairs() ([]common.PredictedPair, error) {
	pairs := make([]common.PredictedPair, 0, len(m.Pairs))
	for i, p := range m.Pairs {
		if p.Head == "" || p.Tail == "" {
			return nil, fmt.Errorf("%w: pair %d needs head and tail", ErrInvalidMessage, i)
		}
		pairs = append(pairs, common.PredictedPair{
			Pair: common.Pair{Head: p.Head, Tail: p.Tail},
			FP:   p.FP,
		})
	}
	return pairs, nil
}

// ProcessScoreMessage scores the pairs in msg and publishes the records to
// the results queue, followed by a completion event.
func ProcessScoreMessage(ctx context.Context, engine Scorer, ch Channel, msg string) error {
	data := new(QueueScoreMsg)
	if err := json.Unmarshal([]byte(msg), data); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidMessage, err)
	}
	if data.Relation == "" {
		return fmt.Errorf("%w: relation is required", ErrInvalidMessage)
	}
	pairs, err := data.predictedPairs()
	if err != nil {
		return err
	}
	if data.CorrelationID == "" {
		data.CorrelationID, err = gonanoid.New()
		if err != nil {
			return err
		}
	}

	params := engine.Options().Params.Override(data.Sigma, data.Mu, data.Theta)
	logger.Info("[Queue] Scoring pairs", "correlation_id", data.CorrelationID, "relation", data.Relation, "pairs", len(pairs))

	records, err := engine.Score(ctx, data.Relation, pairs, params)
	if err != nil {
		return fmt.Errorf("score %s: %w", data.CorrelationID, err)
	}

	result := QueueScoreResultMsg{
		CorrelationID: data.CorrelationID,
		Relation:      data.Relation,
		Records:       records,
		Summary:       scoring.Summarize(records, params),
	}
	body, err := json.Marshal(result)
	if err != nil {
		return err
	}
	err = util.RetryErrWithContext(ctx, 3, func(ctx context.Context) error {
		return PublishFIFO(ch, ResultsQueue, body)
	})
	if err != nil {
		return fmt.Errorf("publish results: %w", err)
	}

	event := ScoreCompletedEvent{
		CorrelationID: data.CorrelationID,
		Relation:      data.Relation,
		Pairs:         len(records),
	}
	for _, r := range records {
		if r.Accepted {
			event.Accepted++
		}
	}
	eventBody, err := json.Marshal(event)
	if err != nil {
		return err
	}
	// results are already out, a lost event is only logged
	if err := PublishTopic(ch, ScoreCompletedTopic, eventBody); err != nil {
		logger.Warn("[Queue] Failed to publish completion event", "correlation_id", data.CorrelationID, "err", err)
	}
	return nil
}
