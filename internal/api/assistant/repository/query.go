package assistantRepository

const (
	queryGetAssistantByID = `
		SELECT
			id, name, voice, playback_rate, is_active,
			created_at, updated_at
		FROM assistants
		WHERE id = :id
	`

	queryGetDefaultAssistant = `
		SELECT
			id, name, voice, playback_rate, is_active,
			created_at, updated_at
		FROM assistants
		WHERE is_active = TRUE
		ORDER BY created_at ASC
		LIMIT 1
	`

	queryGetAllAssistants = `
		SELECT
			id, name, voice, playback_rate, is_active,
			created_at, updated_at
		FROM assistants
		ORDER BY created_at ASC
	`

	queryGetBlocksForAssistant = `
		SELECT
			id, assistant_id, key, lines, sort_order, is_active, updated_at
		FROM instruction_blocks
		WHERE is_active = TRUE
		  AND (assistant_id = '' OR assistant_id = :assistant_id)
		ORDER BY sort_order ASC, key ASC
	`

	queryGetToolsForAssistant = `
		SELECT
			t.name, t.kind, t.description, t.parameters,
			t.route_method, t.route_path, t.ui_command,
			t.session_param, t.simulated_json, t.is_active, t.updated_at
		FROM tool_definitions t
		JOIN assistant_tools at ON at.tool_name = t.name
		WHERE t.is_active = TRUE AND at.assistant_id = :assistant_id
		ORDER BY t.name ASC
	`

	queryGetActiveRules = `
		SELECT
			id, pattern, flags, replacement, direction, is_active, updated_at
		FROM sanitization_rules
		WHERE is_active = TRUE
		ORDER BY id ASC
	`
)
