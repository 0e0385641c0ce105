package postgresql

// migrations returns the schema migrations keyed by version.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflows (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				tenant_id UUID NOT NULL,
				name VARCHAR(200) NOT NULL,
				description VARCHAR(1000) NOT NULL DEFAULT '',
				entity_type VARCHAR(100) NOT NULL,
				trigger_type VARCHAR(50) NOT NULL,
				trigger_conditions TEXT NOT NULL DEFAULT '',
				schedule VARCHAR(100) NOT NULL DEFAULT '',
				is_active BOOLEAN NOT NULL DEFAULT TRUE,
				execution_order INTEGER NOT NULL DEFAULT 0,
				execution_count INTEGER NOT NULL DEFAULT 0,
				last_run_at TIMESTAMP WITH TIME ZONE,
				created_by UUID,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflows_trigger
				ON workflows (tenant_id, entity_type, trigger_type)
				WHERE is_active;

			CREATE TABLE IF NOT EXISTS workflow_steps (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				workflow_id BIGINT NOT NULL REFERENCES workflows (id) ON DELETE CASCADE,
				name VARCHAR(200) NOT NULL,
				action_type VARCHAR(100) NOT NULL,
				action_configuration TEXT NOT NULL DEFAULT '',
				step_order INTEGER NOT NULL DEFAULT 0,
				delay_minutes INTEGER NOT NULL DEFAULT 0,
				is_enabled BOOLEAN NOT NULL DEFAULT TRUE,
				continue_on_error BOOLEAN NOT NULL DEFAULT FALSE
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_steps_workflow
				ON workflow_steps (workflow_id, step_order);

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				workflow_id BIGINT NOT NULL REFERENCES workflows (id),
				tenant_id UUID NOT NULL,
				entity_id VARCHAR(100) NOT NULL,
				entity_type VARCHAR(100) NOT NULL,
				trigger_data TEXT NOT NULL DEFAULT '',
				triggered_by UUID,
				status VARCHAR(20) NOT NULL,
				error_message VARCHAR(2000) NOT NULL DEFAULT '',
				current_step_order INTEGER NOT NULL DEFAULT 0,
				total_steps INTEGER NOT NULL DEFAULT 0,
				completed_steps INTEGER NOT NULL DEFAULT 0,
				failed_steps INTEGER NOT NULL DEFAULT 0,
				started_at TIMESTAMP WITH TIME ZONE,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW(),
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_executions_tenant
				ON workflow_executions (tenant_id, workflow_id);
		`,
		2: `
			CREATE TABLE IF NOT EXISTS workflow_step_executions (
				id BIGINT GENERATED BY DEFAULT AS IDENTITY PRIMARY KEY,
				execution_id BIGINT NOT NULL REFERENCES workflow_executions (id) ON DELETE CASCADE,
				step_id BIGINT NOT NULL,
				tenant_id UUID NOT NULL,
				step_name VARCHAR(200) NOT NULL,
				action_type VARCHAR(100) NOT NULL,
				step_order INTEGER NOT NULL DEFAULT 0,
				status VARCHAR(20) NOT NULL,
				input_data TEXT NOT NULL DEFAULT '',
				output_data TEXT NOT NULL DEFAULT '',
				error_message VARCHAR(2000) NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL DEFAULT NOW()
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_step_executions_execution
				ON workflow_step_executions (tenant_id, execution_id, step_order);
		`,
	}
}
