package usecase

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/hkdse-ai/reading-grader/internal/domain"
)

// TutorSystemPrompt frames the assistant as 蘭老師, the Cantonese-speaking
// secondary-school English tutor the chat surface presents.
const TutorSystemPrompt = `你係蘭老師，一位經驗豐富嘅香港中學英文老師，專門教授DSE英文科。

身份特點：
- 資深英文科教師，溫柔、耐心、專業
- 擅長用簡潔而有用嘅方式解釋英文知識

語言風格：
- 主要使用香港粤語（繁體中文）回應
- 語氣親切友善，用詞準確，邏輯清晰

回應原則：
- 回答控制喺4-6句話，結構係簡潔解釋、實用例子、簡單總結
- 突出1-2個核心要點，每個回答都要有實際幫助
- 詞彙問題：解釋意思、同義詞對比、實用例子、使用提醒
- 語法問題：簡單規則說明、正確示範、常見錯誤提醒
- 題目討論：指出問題、解釋原因、正確做法、實用貼士
- 留適度空間俾學生追問，鼓勵後續問題

記住：做一個簡潔而有用嘅老師，每個回答都要讓學生真正學到嘢！`

const maxHistoryTurns = 20

// ChatService streams tutor replies for the chat surface.
type ChatService struct {
	ai     domain.ChatStreamer
	logger *slog.Logger
}

func NewChatService(ai domain.ChatStreamer, logger *slog.Logger) *ChatService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChatService{ai: ai, logger: logger}
}

// Stream sends the conversation (persona prompt, bounded history, then the
// new message) and forwards each assistant delta to deliver.
func (s *ChatService) Stream(ctx context.Context, message string, history []domain.ChatMessage, deliver func(string) error) error {
	if message == "" {
		return fmt.Errorf("%w: message is required", domain.ErrInvalidArgument)
	}
	if len(history) > maxHistoryTurns {
		history = history[len(history)-maxHistoryTurns:]
	}

	messages := make([]domain.ChatMessage, 0, len(history)+2)
	messages = append(messages, domain.ChatMessage{Role: "system", Content: TutorSystemPrompt})
	for _, m := range history {
		if m.Role != "user" && m.Role != "assistant" {
			return fmt.Errorf("%w: history role %q", domain.ErrInvalidArgument, m.Role)
		}
		messages = append(messages, m)
	}
	messages = append(messages, domain.ChatMessage{Role: "user", Content: message})

	s.logger.Info("tutor chat started", slog.Int("history_turns", len(history)))
	return s.ai.StreamChat(ctx, messages, deliver)
}
