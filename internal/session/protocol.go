package session

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is returned for malformed client messages.
var ErrValidation = errors.New("invalid message")

// MessageType is the "type" field of a wire message.
type MessageType string

const (
	TypeAudioStart       MessageType = "audio_start"
	TypeAudioChunk       MessageType = "audio_chunk"
	TypeAudioEnd         MessageType = "audio_end"
	TypeProcessingStart  MessageType = "processing_start"
	TypeProcessingEnd    MessageType = "processing_end"
	TypeProcessingResult MessageType = "processing_result"
	TypeLLMResponse      MessageType = "llm_response"
	TypeAudioResponse    MessageType = "audio_response"
	TypeError            MessageType = "error"
)

// ClientMessage is a message sent by the candidate's client.
type ClientMessage struct {
	Type  MessageType `json:"type"`
	Chunk string      `json:"chunk,omitempty"`
}

// ServerMessage is a message sent to the client. Only the fields of its type are set.
type ServerMessage struct {
	Type MessageType `json:"type"`

	// processing_result, llm_response
	Text string `json:"text,omitempty"`
	// llm_response
	Status string `json:"status,omitempty"`
	Topic  string `json:"current_topic,omitempty"`

	// audio_response
	Chunk      string `json:"chunk,omitempty"`
	SampleRate int    `json:"sample_rate,omitempty"`
	Seq        int    `json:"seq,omitempty"`
	Final      bool   `json:"final,omitempty"`

	// error
	Message string `json:"message,omitempty"`
}

// DecodeClientMessage parses one websocket text frame.
func DecodeClientMessage(data []byte) (ClientMessage, error) {
	var msg ClientMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return ClientMessage{}, fmt.Errorf("%w: %v", ErrValidation, err)
	}
	msg.Type = MessageType(strings.TrimSpace(string(msg.Type)))
	if msg.Type == "" {
		return ClientMessage{}, fmt.Errorf("%w: missing type", ErrValidation)
	}
	return msg, nil
}

func errorMessage(err error) ServerMessage {
	return ServerMessage{Type: TypeError, Message: err.Error()}
}
