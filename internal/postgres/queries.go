package postgres

const (
	queryInsertRoom = `
		INSERT INTO rooms (room_id, participants, capacity, is_active, version, created_at, updated_at)
		VALUES ($1, $2::jsonb, $3, $4, $5, $6, $7)`

	querySelectRoom = `
		SELECT room_id, participants, capacity, is_active, version, created_at, updated_at
		FROM rooms WHERE room_id=$1`

	// Блокируем строку комнаты: параллельные Update по той же комнате ждут.
	querySelectRoomForUpdate = querySelectRoom + ` FOR UPDATE`

	queryListRooms = `
		SELECT room_id, participants, capacity, is_active, version, created_at, updated_at
		FROM rooms ORDER BY created_at ASC, room_id ASC`

	queryUpdateRoom = `
		UPDATE rooms
		SET participants=$2::jsonb, capacity=$3, is_active=$4, version=$5, updated_at=$6
		WHERE room_id=$1`

	queryDeleteRoom = `DELETE FROM rooms WHERE room_id=$1`

	queryRoomsByConnection = `SELECT room_id FROM rooms WHERE participants @> $1::jsonb ORDER BY room_id`

	queryClearParticipants = `
		UPDATE rooms SET participants='[]'::jsonb, version=version+1
		WHERE participants <> '[]'::jsonb`
)
