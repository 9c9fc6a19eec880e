package constant

const (
	ChatMessageRoleUser      = "user"
	ChatMessageRoleAssistant = "assistant"

	// Stage labels, used in logs, spans and the raw session log.
	StageGuardrail   = "guardrail"
	StageRouter      = "router"
	StageData        = "data"
	StageEngineering = "engineering"
	StageApp         = "app"
	StageAggregator  = "aggregator"
	StageJudge       = "judge"
	StageTool        = "tool"

	// Inbound error codes.
	ErrCodeClassification = "CLASSIFICATION_FAILED"
	ErrCodeQuota          = "QUOTA_EXCEEDED"
	ErrCodeValidation     = "VALIDATION_FAILED"
	ErrCodeUnauthorized   = "UNAUTHORIZED"
	ErrCodeNotFound       = "NOT_FOUND"
	ErrCodeInternal       = "INTERNAL_ERROR"

	// User-facing apologies. Never include internals here.
	MsgClassificationFailed = "Desculpe, não consegui entender sua mensagem. Pode reformular?"
	MsgQuotaExceeded        = "Desculpe, estou com muitas solicitações agora. Tente novamente em instantes."
	MsgInternalError        = "Desculpe, algo deu errado ao processar sua mensagem."
	MsgValidationFailed     = "Requisição inválida."
	MsgUnauthorized         = "Não autorizado."
	MsgNotFound             = "Não encontrado."

	// Events published on the NATS bus.
	EventChatTurnCompleted = "CHAT_TURN_COMPLETED"
	EventChatTurnFailed    = "CHAT_TURN_FAILED"
)
