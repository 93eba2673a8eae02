package postgresql

func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE workflow_definitions (
				id VARCHAR(255) PRIMARY KEY,
				name VARCHAR(255) NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				trigger_object VARCHAR(100) NOT NULL,
				trigger_event VARCHAR(50) NOT NULL CHECK (trigger_event IN ('CREATE', 'UPDATE', 'FIELD_CHANGE', 'SCHEDULED', 'MANUAL')),
				trigger_conditions JSONB,
				is_active BOOLEAN NOT NULL DEFAULT true,
				created_by VARCHAR(255),
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_workflow_definitions_trigger ON workflow_definitions(trigger_object, trigger_event) WHERE is_active;

			CREATE TABLE workflow_actions (
				workflow_id VARCHAR(255) NOT NULL REFERENCES workflow_definitions(id) ON DELETE CASCADE,
				id VARCHAR(255) NOT NULL,
				action_order INT NOT NULL,
				action_type VARCHAR(50) NOT NULL,
				config JSONB NOT NULL DEFAULT '{}',
				conditions JSONB,
				delay_minutes INT NOT NULL DEFAULT 0,
				stop_on_failure BOOLEAN,
				PRIMARY KEY (workflow_id, id)
			);

			CREATE INDEX idx_workflow_actions_order ON workflow_actions(workflow_id, action_order);
		`,
		2: `
			CREATE TABLE workflow_executions (
				id VARCHAR(255) PRIMARY KEY,
				workflow_id VARCHAR(255) NOT NULL,
				trigger_record_id VARCHAR(255) NOT NULL,
				trigger_object VARCHAR(100) NOT NULL,
				trigger_event VARCHAR(50) NOT NULL,
				trigger_data JSONB,
				actor_id VARCHAR(255),
				status VARCHAR(20) NOT NULL CHECK (status IN ('RUNNING', 'COMPLETED', 'FAILED')),
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				result JSONB NOT NULL DEFAULT '[]',
				error_message TEXT
			);

			CREATE INDEX idx_workflow_executions_workflow ON workflow_executions(workflow_id, started_at DESC);

			CREATE TABLE audit_log (
				id VARCHAR(255) PRIMARY KEY,
				entity_type VARCHAR(100) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				action VARCHAR(50) NOT NULL,
				old_values JSONB,
				new_values JSONB NOT NULL,
				actor_id VARCHAR(255),
				source VARCHAR(50) NOT NULL,
				timestamp TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_audit_log_entity ON audit_log(entity_type, entity_id, timestamp);
		`,
		3: `
			CREATE TABLE deferred_actions (
				id VARCHAR(255) PRIMARY KEY,
				entity_type VARCHAR(100) NOT NULL,
				entity_id VARCHAR(255) NOT NULL,
				payload JSONB NOT NULL,
				execution_id VARCHAR(255) NOT NULL,
				scheduled_for TIMESTAMP WITH TIME ZONE NOT NULL,
				status VARCHAR(20) NOT NULL CHECK (status IN ('PENDING', 'PROCESSING', 'COMPLETED', 'FAILED')),
				attempts INT NOT NULL DEFAULT 0,
				last_error TEXT,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX idx_deferred_actions_due ON deferred_actions(scheduled_for) WHERE status = 'PENDING';
			CREATE INDEX idx_deferred_actions_execution ON deferred_actions(execution_id);

			CREATE TABLE document_templates (
				id VARCHAR(255) PRIMARY KEY,
				document_type VARCHAR(20) NOT NULL,
				name VARCHAR(255) NOT NULL,
				body TEXT NOT NULL,
				is_default BOOLEAN NOT NULL DEFAULT false,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE UNIQUE INDEX idx_document_templates_default ON document_templates(document_type) WHERE is_default;
		`,
		4: `
			-- Generic CRM record store shared with pkg/records/postgresql
			CREATE TABLE crm_records (
				entity_type VARCHAR(100) NOT NULL,
				id VARCHAR(255) NOT NULL,
				data JSONB NOT NULL,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				PRIMARY KEY (entity_type, id)
			);
		`,
	}
}
