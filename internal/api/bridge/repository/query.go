package bridgeRepository

const (
	queryCreateConversation = `
		INSERT INTO conversations (
			id, user_id, assistant_id, title, summary,
			last_activity, created_at
		) VALUES (
			:id, :user_id, :assistant_id, :title, :summary,
			:last_activity, :created_at
		)
	`

	queryGetConversationByID = `
		SELECT
			id, user_id, assistant_id, title, summary,
			last_activity, created_at
		FROM conversations
		WHERE id = :id
	`

	queryTouchConversation = `
		UPDATE conversations
		SET last_activity = :last_activity
		WHERE id = :id
	`

	queryUpdateConversationSummary = `
		UPDATE conversations
		SET summary = :summary, last_activity = :last_activity
		WHERE id = :id
	`

	queryAppendMessage = `
		INSERT INTO conversation_messages (
			id, conversation_id, sequence, role, content,
			tool_call_id, created_at
		) VALUES (
			:id, :conversation_id,
			(SELECT COALESCE(MAX(sequence), 0) + 1
			   FROM conversation_messages
			  WHERE conversation_id = :conversation_id),
			:role, :content, :tool_call_id, :created_at
		)
	`

	queryGetMessagesByConversationID = `
		SELECT
			id, conversation_id, sequence, role, content,
			tool_call_id, created_at
		FROM conversation_messages
		WHERE conversation_id = :conversation_id
		ORDER BY sequence ASC
		LIMIT :limit
	`

	queryCreateToolCall = `
		INSERT INTO tool_calls (
			id, conversation_id, name, status, input_json, created_at
		) VALUES (
			:id, :conversation_id, :name, :status, :input_json, :created_at
		)
	`

	queryCompleteToolCall = `
		UPDATE tool_calls
		SET
			status = :status,
			result_json = :result_json,
			error = :error,
			completed_at = :completed_at
		WHERE id = :id AND status = 'started'
	`

	queryGetToolCallByID = `
		SELECT
			id, conversation_id, name, status, input_json,
			result_json, error, created_at, completed_at
		FROM tool_calls
		WHERE id = :id
	`
)
