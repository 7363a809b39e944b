package database

import (
	"fmt"
	"log/slog"
)

func (db *DB) RunMigrations() error {
	slog.Info("Running database migrations...")

	migrations := []string{
		createUsersTable,
		createCreatorTables,
		createCategoriesTable,
		createExperiencesTables,
		createBookingsTable,
		createBookingRequestsTable,
		createConversationTables,
		createMessageExtrasTables,
		createAdminActionsTable,
		createSpotlightsTable,
		createWebhookEventsTable,
		alterAdminReferences,
		createIndexes,
		createUpdateUserRoleFunc,
		createDeleteUserDataFunc,
		createDeleteExperienceFunc,
		createMarkMessagesAsReadFunc,
		createUnreadMessageCountFunc,
		createUpdateSpotlightOrderFunc,
	}

	for i, migration := range migrations {
		slog.Info("Running migration", "step", i+1)
		if _, err := db.Exec(migration); err != nil {
			return fmt.Errorf("migration %d failed: %w", i+1, err)
		}
	}

	slog.Info("All migrations completed successfully")
	return nil
}

const createUsersTable = `
CREATE TABLE IF NOT EXISTS users (
    id UUID PRIMARY KEY,
    email VARCHAR(255) UNIQUE NOT NULL,
    full_name VARCHAR(255),
    role VARCHAR(20) NOT NULL DEFAULT 'user',
    communication_preferences JSONB NOT NULL DEFAULT '{"email":true,"sms":false,"whatsapp":false,"preferredChannel":"email"}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (role IN ('user', 'creator', 'admin'))
);`

const createCreatorTables = `
CREATE TABLE IF NOT EXISTS creator_profiles (
    user_id UUID PRIMARY KEY REFERENCES users(id) ON DELETE CASCADE,
    display_name VARCHAR(255) NOT NULL,
    bio TEXT,
    avatar_url TEXT,
    stripe_account_id VARCHAR(255),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS creator_verifications (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    documents JSONB NOT NULL DEFAULT '[]',
    reviewed_by UUID REFERENCES users(id) ON DELETE SET NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'approved', 'rejected'))
);`

const createCategoriesTable = `
CREATE TABLE IF NOT EXISTS categories (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    name VARCHAR(100) UNIQUE NOT NULL,
    slug VARCHAR(100) UNIQUE NOT NULL
);`

const createExperiencesTables = `
CREATE TABLE IF NOT EXISTS experiences (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    title VARCHAR(200) NOT NULL,
    description TEXT NOT NULL DEFAULT '',
    price NUMERIC(10,2) NOT NULL,
    duration INTEGER NOT NULL,
    max_participants INTEGER NOT NULL,
    booking_type VARCHAR(20) NOT NULL DEFAULT 'instant',
    approval_required BOOLEAN NOT NULL DEFAULT FALSE,
    location TEXT,
    category VARCHAR(100),
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (price >= 0),
    CHECK (max_participants > 0),
    CHECK (booking_type IN ('instant', 'request')),
    CHECK (status IN ('pending', 'approved', 'rejected'))
);

CREATE TABLE IF NOT EXISTS experience_media (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    experience_id UUID NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    type VARCHAR(20) NOT NULL,
    order_index INTEGER NOT NULL DEFAULT 0
);`

const createBookingsTable = `
CREATE TABLE IF NOT EXISTS bookings (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    experience_id UUID NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    participant_count INTEGER NOT NULL,
    booking_date DATE NOT NULL,
    total_amount NUMERIC(10,2) NOT NULL,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    payment_status VARCHAR(20) NOT NULL DEFAULT 'pending',
    stripe_payment_intent_id VARCHAR(255),
    stripe_checkout_session_id VARCHAR(255),
    idempotency_key VARCHAR(255),
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (participant_count > 0),
    CHECK (status IN ('pending', 'confirmed', 'cancelled')),
    CHECK (payment_status IN ('pending', 'paid', 'refunded'))
);`

const createBookingRequestsTable = `
CREATE TABLE IF NOT EXISTS booking_requests (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    booking_id UUID NOT NULL UNIQUE REFERENCES bookings(id) ON DELETE CASCADE,
    experience_id UUID NOT NULL REFERENCES experiences(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    status VARCHAR(20) NOT NULL DEFAULT 'pending',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
    updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (status IN ('pending', 'approved', 'declined'))
);`

const createConversationTables = `
CREATE TABLE IF NOT EXISTS conversations (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    experience_id UUID REFERENCES experiences(id) ON DELETE CASCADE,
    last_message_at TIMESTAMPTZ,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);

CREATE TABLE IF NOT EXISTS messages (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    conversation_id UUID REFERENCES conversations(id) ON DELETE CASCADE,
    sender_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    recipient_id UUID REFERENCES users(id) ON DELETE SET NULL,
    content TEXT NOT NULL,
    type VARCHAR(20) NOT NULL DEFAULT 'text',
    status VARCHAR(20) NOT NULL DEFAULT 'sent',
    external_id VARCHAR(255),
    metadata JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    CHECK (type IN ('text', 'image', 'file', 'system')),
    CHECK (status IN ('pending', 'sent', 'delivered', 'read', 'error'))
);`

const createMessageExtrasTables = `
CREATE TABLE IF NOT EXISTS message_attachments (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    url TEXT NOT NULL,
    content_type VARCHAR(100),
    size_bytes BIGINT
);

CREATE TABLE IF NOT EXISTS message_reactions (
    message_id UUID NOT NULL REFERENCES messages(id) ON DELETE CASCADE,
    user_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    emoji VARCHAR(32) NOT NULL,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),

    PRIMARY KEY (message_id, user_id, emoji)
);`

const createAdminActionsTable = `
CREATE TABLE IF NOT EXISTS admin_actions (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    admin_id UUID REFERENCES users(id) ON DELETE SET NULL,
    action_type VARCHAR(50) NOT NULL,
    target_type VARCHAR(50) NOT NULL,
    target_id VARCHAR(255) NOT NULL,
    details JSONB NOT NULL DEFAULT '{}',
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

const createSpotlightsTable = `
CREATE TABLE IF NOT EXISTS creator_spotlights (
    id UUID PRIMARY KEY DEFAULT gen_random_uuid(),
    creator_id UUID NOT NULL REFERENCES users(id) ON DELETE CASCADE,
    order_index INTEGER NOT NULL DEFAULT 0,
    created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// webhook_events - журнал обработанных событий Stripe, ключ - event id
const createWebhookEventsTable = `
CREATE TABLE IF NOT EXISTS webhook_events (
    event_id VARCHAR(255) PRIMARY KEY,
    event_type VARCHAR(100) NOT NULL,
    processed_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

// alterAdminReferences переводит таблицы, созданные до ON DELETE SET NULL:
// журнал аудита переживает удаление администратора
const alterAdminReferences = `
ALTER TABLE admin_actions ALTER COLUMN admin_id DROP NOT NULL;
ALTER TABLE admin_actions DROP CONSTRAINT IF EXISTS admin_actions_admin_id_fkey;
ALTER TABLE admin_actions ADD CONSTRAINT admin_actions_admin_id_fkey
    FOREIGN KEY (admin_id) REFERENCES users(id) ON DELETE SET NULL;

ALTER TABLE creator_verifications DROP CONSTRAINT IF EXISTS creator_verifications_reviewed_by_fkey;
ALTER TABLE creator_verifications ADD CONSTRAINT creator_verifications_reviewed_by_fkey
    FOREIGN KEY (reviewed_by) REFERENCES users(id) ON DELETE SET NULL;`

const createIndexes = `
CREATE UNIQUE INDEX IF NOT EXISTS bookings_user_idempotency_key_idx
ON bookings (user_id, idempotency_key) WHERE idempotency_key IS NOT NULL;

CREATE INDEX IF NOT EXISTS bookings_payment_intent_idx
ON bookings (stripe_payment_intent_id) WHERE stripe_payment_intent_id IS NOT NULL;

CREATE INDEX IF NOT EXISTS bookings_user_created_idx ON bookings (user_id, created_at DESC);

CREATE UNIQUE INDEX IF NOT EXISTS conversations_participants_idx
ON conversations (creator_id, user_id, COALESCE(experience_id, '00000000-0000-0000-0000-000000000000'::uuid));

CREATE INDEX IF NOT EXISTS messages_conversation_created_idx ON messages (conversation_id, created_at);

CREATE INDEX IF NOT EXISTS experiences_status_idx ON experiences (status, created_at DESC);

CREATE INDEX IF NOT EXISTS experience_media_order_idx ON experience_media (experience_id, order_index);`

const createUpdateUserRoleFunc = `
CREATE OR REPLACE FUNCTION update_user_role(p_admin_id UUID, p_user_id UUID, p_role VARCHAR)
RETURNS VOID AS $$
BEGIN
    UPDATE users SET role = p_role, updated_at = NOW() WHERE id = p_user_id;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'user % not found', p_user_id USING ERRCODE = 'no_data_found';
    END IF;
    INSERT INTO admin_actions (admin_id, action_type, target_type, target_id, details)
    VALUES (p_admin_id, 'update_role', 'user', p_user_id::text, jsonb_build_object('role', p_role));
END;
$$ LANGUAGE plpgsql;`

const createDeleteUserDataFunc = `
CREATE OR REPLACE FUNCTION delete_user_data(p_admin_id UUID, p_user_id UUID)
RETURNS VOID AS $$
BEGIN
    DELETE FROM messages WHERE sender_id = p_user_id;
    DELETE FROM conversations WHERE creator_id = p_user_id OR user_id = p_user_id;
    DELETE FROM booking_requests WHERE user_id = p_user_id OR creator_id = p_user_id;
    DELETE FROM bookings WHERE user_id = p_user_id;
    DELETE FROM experiences WHERE creator_id = p_user_id;
    DELETE FROM creator_spotlights WHERE creator_id = p_user_id;
    DELETE FROM creator_verifications WHERE creator_id = p_user_id;
    DELETE FROM creator_profiles WHERE user_id = p_user_id;
    DELETE FROM users WHERE id = p_user_id;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'user % not found', p_user_id USING ERRCODE = 'no_data_found';
    END IF;
    INSERT INTO admin_actions (admin_id, action_type, target_type, target_id, details)
    VALUES (p_admin_id, 'delete_user', 'user', p_user_id::text, '{}'::jsonb);
END;
$$ LANGUAGE plpgsql;`

const createDeleteExperienceFunc = `
CREATE OR REPLACE FUNCTION delete_experience_rpc(p_admin_id UUID, p_experience_id UUID)
RETURNS VOID AS $$
BEGIN
    DELETE FROM experience_media WHERE experience_id = p_experience_id;
    DELETE FROM experiences WHERE id = p_experience_id;
    IF NOT FOUND THEN
        RAISE EXCEPTION 'experience % not found', p_experience_id USING ERRCODE = 'no_data_found';
    END IF;
    INSERT INTO admin_actions (admin_id, action_type, target_type, target_id, details)
    VALUES (p_admin_id, 'delete_experience', 'experience', p_experience_id::text, '{}'::jsonb);
END;
$$ LANGUAGE plpgsql;`

const createMarkMessagesAsReadFunc = `
CREATE OR REPLACE FUNCTION mark_messages_as_read(p_conversation_id UUID, p_user_id UUID)
RETURNS SETOF UUID AS $$
    UPDATE messages SET status = 'read'
    WHERE conversation_id = p_conversation_id
      AND sender_id <> p_user_id
      AND status IN ('sent', 'delivered')
    RETURNING id;
$$ LANGUAGE sql;`

const createUnreadMessageCountFunc = `
CREATE OR REPLACE FUNCTION get_unread_message_count(p_user_id UUID)
RETURNS BIGINT AS $$
    SELECT COUNT(*) FROM messages m
    JOIN conversations c ON c.id = m.conversation_id
    WHERE (c.creator_id = p_user_id OR c.user_id = p_user_id)
      AND m.sender_id <> p_user_id
      AND m.status IN ('sent', 'delivered');
$$ LANGUAGE sql STABLE;`

const createUpdateSpotlightOrderFunc = `
CREATE OR REPLACE FUNCTION update_spotlight_order(p_ids UUID[])
RETURNS VOID AS $$
BEGIN
    FOR i IN 1 .. COALESCE(array_length(p_ids, 1), 0) LOOP
        UPDATE creator_spotlights SET order_index = i - 1 WHERE id = p_ids[i];
    END LOOP;
END;
$$ LANGUAGE plpgsql;`
