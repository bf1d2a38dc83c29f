// judge.go implements the numbered-candidate judge prompt/response contract
// recovered from original_source/.../aggregation/judge.py: the judge is
// shown a numbered list of candidate texts and instructed to answer with
// the number only; its reply is parsed for the first integer on the first
// line, in range [1, len(candidates)].
package consensus

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/nilfrost/llmorch/pkg/llm/domain"
)

var firstIntOnFirstLine = regexp.MustCompile(`-?\d+`)

// BuildJudgePrompt renders the numbered-candidate prompt for candidates.
func BuildJudgePrompt(candidates []domain.ConsensusObservation) string {
	var b strings.Builder
	b.WriteString("Multiple candidate answers are listed below. Reply with the number of the best answer only.\n\n")
	for i, c := range candidates {
		fmt.Fprintf(&b, "%d. %s\n", i+1, c.Response.Text)
	}
	return b.String()
}

// ParseJudgeReply extracts the first integer on the first non-empty line of
// reply and returns its 0-based index into candidates, falling back to
// errJudgeParseFailed when parsing fails or the index is out of range.
func ParseJudgeReply(reply string, numCandidates int) (int, error) {
	for _, line := range strings.Split(reply, "\n") {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		match := firstIntOnFirstLine.FindString(line)
		if match == "" {
			break
		}
		n, err := strconv.Atoi(match)
		if err != nil {
			break
		}
		if n < 1 || n > numCandidates {
			break
		}
		return n - 1, nil
	}
	return 0, errJudgeParseFailed
}

var errJudgeParseFailed = fmt.Errorf("judge: could not parse a candidate number from the reply")

// ProviderJudge adapts a domain.Provider (an LLM itself acting as judge)
// into a domain.Judge using the numbered-candidate contract above.
type ProviderJudge struct {
	provider domain.Provider
	ctx      context.Context
}

// NewProviderJudge builds a ProviderJudge calling provider for each runoff.
func NewProviderJudge(ctx context.Context, provider domain.Provider) *ProviderJudge {
	return &ProviderJudge{provider: provider, ctx: ctx}
}

func (j *ProviderJudge) Name() string { return "provider:" + j.provider.Name() }

func (j *ProviderJudge) Decide(candidates []domain.ConsensusObservation) (string, float64, error) {
	prompt := BuildJudgePrompt(candidates)
	req := domain.NewProviderRequest(domain.ProviderRequestParams{
		Model:  candidates[0].Response.Model,
		Prompt: prompt,
	})
	resp, err := j.provider.Invoke(j.ctx, req)
	if err != nil {
		return "", 0, err
	}
	idx, err := ParseJudgeReply(resp.Text, len(candidates))
	if err != nil {
		return "", 0, err
	}
	score, _ := resp.Score()
	return candidates[idx].Response.Text, score, nil
}
