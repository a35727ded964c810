package protocol

// This file is the static schema: one register() call per known
// (state, direction, id) tuple, per spec §6 "Packet types of note". It is
// a representative subset — the full registry a production server would
// carry is larger — but every id spec.md names by number is present.

func init() {
	// --- Handshake (serverbound only; this state has no clientbound packets) ---
	register(&PacketSpec{
		State: Handshake, Direction: Serverbound, ID: 0x00, Name: "handshake",
		Fields: []FieldSpec{
			{Name: "protocol_version", Type: FieldVarInt32},
			{Name: "server_address", Type: FieldString, StringMaxLen: 255},
			{Name: "server_port", Type: FieldUint16},
			{Name: "next_state", Type: FieldVarInt32},
		},
	})

	// --- Status ---
	register(&PacketSpec{State: Status, Direction: Serverbound, ID: 0x00, Name: "status_request"})
	register(&PacketSpec{
		State: Status, Direction: Clientbound, ID: 0x00, Name: "status_response",
		Fields: []FieldSpec{{Name: "json_response", Type: FieldString, StringMaxLen: 32767}},
	})
	register(&PacketSpec{
		State: Status, Direction: Serverbound, ID: 0x01, Name: "status_ping",
		Fields: []FieldSpec{{Name: "payload", Type: FieldInt64}},
	})
	register(&PacketSpec{
		State: Status, Direction: Clientbound, ID: 0x01, Name: "status_pong",
		Fields: []FieldSpec{{Name: "payload", Type: FieldInt64}},
	})

	// --- Login ---
	register(&PacketSpec{
		State: Login, Direction: Serverbound, ID: 0x00, Name: "login_start",
		Fields: []FieldSpec{{Name: "username", Type: FieldString, StringMaxLen: 16}},
	})
	register(&PacketSpec{
		State: Login, Direction: Clientbound, ID: 0x00, Name: "login_disconnect",
		Fields: []FieldSpec{{Name: "reason", Type: FieldString, StringMaxLen: 32767}},
	})
	register(&PacketSpec{
		State: Login, Direction: Clientbound, ID: 0x01, Name: "login_encryption_request",
		Fields: []FieldSpec{
			{Name: "server_id", Type: FieldString, StringMaxLen: 20},
			{Name: "public_key_length", Type: FieldVarInt32},
			{Name: "public_key", Type: FieldRawBytes, RawLengthFrom: "public_key_length"},
			{Name: "verify_token_length", Type: FieldVarInt32},
			{Name: "verify_token", Type: FieldRawBytes, RawLengthFrom: "verify_token_length"},
		},
	})
	register(&PacketSpec{
		State: Login, Direction: Serverbound, ID: 0x01, Name: "login_encryption_response",
		Fields: []FieldSpec{
			{Name: "shared_secret_length", Type: FieldVarInt32},
			{Name: "shared_secret", Type: FieldRawBytes, RawLengthFrom: "shared_secret_length"},
			{Name: "verify_token_length", Type: FieldVarInt32},
			{Name: "verify_token", Type: FieldRawBytes, RawLengthFrom: "verify_token_length"},
		},
	})
	register(&PacketSpec{
		State: Login, Direction: Clientbound, ID: 0x02, Name: "login_success",
		Fields: []FieldSpec{
			{Name: "uuid", Type: FieldString, StringMaxLen: 36},
			{Name: "username", Type: FieldString, StringMaxLen: 16},
		},
	})

	// --- Play ---
	register(&PacketSpec{
		State: Play, Direction: Clientbound, ID: 0x00, Name: "keep_alive_cb",
		Fields: []FieldSpec{{Name: "token", Type: FieldUint64}},
	})
	register(&PacketSpec{
		State: Play, Direction: Serverbound, ID: 0x00, Name: "keep_alive_sb",
		Fields: []FieldSpec{{Name: "token", Type: FieldUint64}},
	})
	register(&PacketSpec{
		State: Play, Direction: Clientbound, ID: 0x04, Name: "time_update",
		Fields: []FieldSpec{
			{Name: "age", Type: FieldUint64},
			{Name: "time_of_day", Type: FieldUint64},
		},
	})
	register(&PacketSpec{
		State: Play, Direction: Clientbound, ID: 0x33, Name: "chunk_data",
		Fields: []FieldSpec{
			{Name: "x", Type: FieldInt32},
			{Name: "z", Type: FieldInt32},
			{Name: "group_up", Type: FieldBool},
			{Name: "primary_mask", Type: FieldUint16},
			{Name: "add_mask", Type: FieldUint16},
			{Name: "compressed_len", Type: FieldInt32},
			{Name: "compressed", Type: FieldRawBytes, RawLengthFrom: "compressed_len"},
		},
	})
	register(&PacketSpec{
		State: Play, Direction: Clientbound, ID: 0x35, Name: "block_change",
		Fields: []FieldSpec{
			{Name: "x", Type: FieldInt32},
			{Name: "y", Type: FieldUint8},
			{Name: "z", Type: FieldInt32},
			{Name: "block_type", Type: FieldVarInt32},
			{Name: "block_meta", Type: FieldUint8},
		},
	})
	register(&PacketSpec{
		State: Play, Direction: Serverbound, ID: 0x01, Name: "chat_message_sb",
		Fields: []FieldSpec{{Name: "message", Type: FieldString, StringMaxLen: 100}},
	})
	register(&PacketSpec{
		State: Play, Direction: Clientbound, ID: 0x02, Name: "chat_message_cb",
		Fields: []FieldSpec{{Name: "json_message", Type: FieldString, StringMaxLen: 32767}},
	})
	register(&PacketSpec{
		State: Play, Direction: Clientbound, ID: 0xFF, Name: "play_disconnect",
		Fields: []FieldSpec{{Name: "reason", Type: FieldString, StringMaxLen: 32767}},
	})
}
