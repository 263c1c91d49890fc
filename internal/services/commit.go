package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"regexp"
	"strings"
	"time"

	"gitsmart/internal/config"
	"gitsmart/internal/domain"
	"gitsmart/internal/logging"
	"gitsmart/internal/ports"
)

const (
	// DefaultMaxAttempts is how many completions are requested before giving up on the format
	DefaultMaxAttempts = 5
	// DefaultRetryDelay is the pause between attempts with an unusable format
	DefaultRetryDelay = 2 * time.Second
)

var (
	tagPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<commit_message>(.*?)</commit_message>`),
		regexp.MustCompile(`(?is)\[commit_message\](.*?)\[/commit_message\]`),
	}
	fencePattern = regexp.MustCompile("(?s)```commit(?:`{3,})?(.*?)```(?:`{3,})?")
)

// CommitOptions tunes commit message generation
type CommitOptions struct {
	MaxAttempts int
	MaxTokens   int
	RetryDelay  time.Duration
	Temperature float64
	UseEmojis   bool
}

// CommitService turns diffs into commit messages and commit lists into summaries
type CommitService struct {
	llm    ports.ChatCompleter
	logger *slog.Logger
	opts   CommitOptions
}

// NewCommitService creates a new CommitService
func NewCommitService(llm ports.ChatCompleter, opts CommitOptions, logger *slog.Logger) *CommitService {
	if opts.MaxAttempts <= 0 {
		opts.MaxAttempts = DefaultMaxAttempts
	}
	if opts.MaxTokens <= 0 {
		opts.MaxTokens = config.DefaultMaxTokens
	}
	switch {
	case opts.RetryDelay == 0:
		opts.RetryDelay = DefaultRetryDelay
	case opts.RetryDelay < 0:
		opts.RetryDelay = 0
	}
	return &CommitService{
		llm:    llm,
		logger: logging.OrDiscard(logger),
		opts:   opts,
	}
}

func (s *CommitService) systemPrompt() string {
	if s.opts.UseEmojis {
		return commitSystemPromptEmoji
	}
	return commitSystemPrompt
}

// Messages builds the chat request for a diff, truncating it to the token budget
func (s *CommitService) Messages(diff, notes string) []ports.ChatMessage {
	system := s.systemPrompt()
	appendix := commitUserAppendix
	if notes != "" {
		appendix += commitNotesHeader + EscapeNotes(notes) + "\n"
	}

	body := TruncateDiff(diff, system, appendix, s.opts.MaxTokens)
	if body != diff {
		s.logger.Info("Diff truncated", "from", CountTokens(diff), "to", CountTokens(body), "max_tokens", s.opts.MaxTokens)
	}

	return []ports.ChatMessage{
		{Role: "system", Content: system},
		{Role: "user", Content: commitUserPrefix + body + appendix},
	}
}

// EstimateTokens returns the whitespace word count of a request
func EstimateTokens(messages []ports.ChatMessage) int {
	total := 0
	for _, m := range messages {
		total += CountTokens(m.Content)
	}
	return total
}

// ExceedsBudget reports whether a request is still over max_tokens after truncation
func (s *CommitService) ExceedsBudget(messages []ports.ChatMessage) bool {
	return EstimateTokens(messages) > s.opts.MaxTokens
}

// Generate asks the model for a commit message. Responses without a
// recognisable message are retried; transport errors are returned at once.
func (s *CommitService) Generate(ctx context.Context, model string, messages []ports.ChatMessage, onDelta func(string)) (string, error) {
	if len(messages) == 0 {
		return "", domain.ErrNoStagedChanges
	}

	for attempt := 1; attempt <= s.opts.MaxAttempts; attempt++ {
		s.logger.Info("Generating commit message", "model", model, "attempt", attempt)

		response, err := s.llm.Complete(ctx, ports.ChatRequest{
			MaxTokens:   s.opts.MaxTokens,
			Messages:    messages,
			Model:       model,
			Temperature: s.opts.Temperature,
		}, onDelta)
		if err != nil {
			s.logger.Error("Completion failed", "model", model, "error", err)
			return "", fmt.Errorf("failed to generate commit message: %w", err)
		}

		if msg := ExtractCommitMessage(response); msg != "" {
			return msg, nil
		}

		s.logger.Warn("Commit message format incorrect", "attempt", attempt, "response", response)
		if attempt == s.opts.MaxAttempts {
			break
		}
		if err := sleepCtx(ctx, s.opts.RetryDelay); err != nil {
			return "", err
		}
	}

	return "", fmt.Errorf("%w after %d attempts", domain.ErrUnparseableResponse, s.opts.MaxAttempts)
}

// Summarize condenses the selected commits into one paragraph
func (s *CommitService) Summarize(ctx context.Context, model string, commits []domain.Commit, onDelta func(string)) (string, error) {
	if len(commits) == 0 {
		return "", errors.New("no commits selected")
	}

	var sb strings.Builder
	for _, c := range commits {
		fmt.Fprintf(&sb, "commit %s\nAuthor: %s\nDate: %s\n\n    %s\n", c.Hash, c.Author, c.Date.Format(time.RFC1123Z), c.Subject)
		if c.Body != "" {
			for _, line := range strings.Split(c.Body, "\n") {
				sb.WriteString("    " + line + "\n")
			}
		}
		sb.WriteString("\n")
	}

	s.logger.Info("Summarizing commits", "model", model, "commits", len(commits), "tokens", CountTokens(sb.String()))
	summary, err := s.llm.Complete(ctx, ports.ChatRequest{
		MaxTokens: s.opts.MaxTokens,
		Messages: []ports.ChatMessage{
			{Role: "system", Content: summarizeSystemPrompt},
			{Role: "user", Content: sb.String()},
		},
		Model:       model,
		Temperature: s.opts.Temperature,
	}, onDelta)
	if err != nil {
		return "", fmt.Errorf("failed to summarize commits: %w", err)
	}
	if _, after, found := strings.Cut(summary, "</think>"); found {
		summary = after
	}
	return strings.TrimSpace(summary), nil
}

// DeletionWarning returns a confirmation question when the staged changes
// are dominated by deletions, or "" when nothing looks unusual
func DeletionWarning(changes []domain.FileChange) string {
	additions, deletions := domain.Totals(changes)
	switch {
	case additions > 0 && deletions > 2*additions:
		return fmt.Sprintf("The staged changes have a high number of deletions (%d) relative to additions (%d). Do you want to proceed?", deletions, additions)
	case additions == 0 && deletions > 0:
		return fmt.Sprintf("The staged changes have %d deletions with no additions. Do you want to proceed?", deletions)
	default:
		return ""
	}
}

// CountTokens approximates tokens as whitespace separated words
func CountTokens(s string) int {
	return len(strings.Fields(s))
}

// TruncateDiff keeps the head and tail of a diff so that together with the
// prompt it fits in maxTokens. The dropped middle is replaced by "...".
func TruncateDiff(diff, system, appendix string, maxTokens int) string {
	allowed := maxTokens - CountTokens(system) - CountTokens(appendix)
	current := CountTokens(diff)
	if current <= allowed {
		return diff
	}

	lines := strings.Split(diff, "\n")
	perLine := float64(current) / float64(max(len(lines), 1))
	keep := max(int(math.Floor(float64(allowed)/perLine)), 1)
	if keep >= len(lines) {
		return diff
	}

	headN := max(keep/2, 1)
	tailN := max(keep-keep/2, 1)
	out := make([]string, 0, headN+tailN+1)
	out = append(out, lines[:headN]...)
	out = append(out, "...")
	out = append(out, lines[len(lines)-tailN:]...)
	return strings.Join(out, "\n")
}

// ExtractCommitMessage pulls the message out of a model response. Reasoning
// up to </think> is dropped, then <COMMIT_MESSAGE> tags win over ```commit fences.
func ExtractCommitMessage(response string) string {
	if _, after, found := strings.Cut(response, "</think>"); found {
		response = after
	}

	for _, re := range tagPatterns {
		if m := re.FindStringSubmatch(response); m != nil {
			if msg := strings.TrimSpace(m[1]); msg != "" {
				return msg
			}
		}
	}

	matches := fencePattern.FindAllStringSubmatch(response, -1)
	parts := make([]string, 0, len(matches))
	for _, m := range matches {
		parts = append(parts, m[1])
	}
	return strings.TrimSpace(strings.Join(parts, "\n"))
}

// EscapeNotes escapes triple backticks so notes cannot close the prompt's fences
func EscapeNotes(notes string) string {
	return strings.ReplaceAll(notes, "```", "\\`\\`\\`")
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
