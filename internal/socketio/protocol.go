package socketio

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"
)

type enginePacketType byte

const (
	engineOpen    enginePacketType = '0'
	engineClose   enginePacketType = '1'
	enginePing    enginePacketType = '2'
	enginePong    enginePacketType = '3'
	engineMessage enginePacketType = '4'
)

type socketPacketType byte

const (
	socketConnect      socketPacketType = '0'
	socketDisconnect   socketPacketType = '1'
	socketEvent        socketPacketType = '2'
	socketAck          socketPacketType = '3'
	socketConnectError socketPacketType = '4'
)

const defaultNamespace = "/"

func parseOptionalNamespace(s string) (namespace string, rest string) {
	if !strings.HasPrefix(s, "/") {
		return defaultNamespace, s
	}
	comma := strings.IndexByte(s, ',')
	if comma == -1 {
		return s, ""
	}
	return s[:comma], s[comma+1:]
}

func parseOptionalIDPrefix(s string) (id *int, rest string) {
	i := 0
	for i < len(s) && s[i] >= '0' && s[i] <= '9' {
		i++
	}
	if i == 0 {
		return nil, s
	}
	v, err := strconv.Atoi(s[:i])
	if err != nil {
		return nil, s
	}
	return &v, s[i:]
}

// eventPacket is a decoded `2[/ns,][id]["name",args...]` packet.
type eventPacket struct {
	Namespace string
	ID        *int
	Name      string
	Args      []json.RawMessage
}

func (p eventPacket) arg(i int) []byte {
	if i >= len(p.Args) {
		return nil
	}
	return p.Args[i]
}

func parseEventPacket(payload string) (eventPacket, error) {
	if payload == "" || payload[0] != byte(socketEvent) {
		return eventPacket{}, errors.New("not an event packet")
	}

	ns, rest := parseOptionalNamespace(payload[1:])
	id, rest := parseOptionalIDPrefix(rest)
	if !strings.HasPrefix(rest, "[") {
		return eventPacket{}, errors.New("invalid event payload")
	}

	var arr []json.RawMessage
	if err := json.Unmarshal([]byte(rest), &arr); err != nil {
		return eventPacket{}, err
	}
	if len(arr) == 0 {
		return eventPacket{}, errors.New("missing event name")
	}
	var name string
	if err := json.Unmarshal(arr[0], &name); err != nil || name == "" {
		return eventPacket{}, errors.New("invalid event name")
	}
	return eventPacket{Namespace: ns, ID: id, Name: name, Args: arr[1:]}, nil
}

func writeNamespace(b *strings.Builder, namespace string) {
	if namespace != "" && namespace != defaultNamespace {
		b.WriteString(namespace)
		b.WriteByte(',')
	}
}

// buildFrame prefixes a socket packet with the engine message type.
func buildFrame(kind socketPacketType, namespace string, id *int, body []byte) string {
	var b strings.Builder
	b.WriteByte(byte(engineMessage))
	b.WriteByte(byte(kind))
	writeNamespace(&b, namespace)
	if id != nil {
		b.WriteString(strconv.Itoa(*id))
	}
	b.Write(body)
	return b.String()
}

func buildEventFrame(namespace string, name string, args ...any) (string, error) {
	arr := make([]any, 0, 1+len(args))
	arr = append(arr, name)
	arr = append(arr, args...)
	data, err := json.Marshal(arr)
	if err != nil {
		return "", err
	}
	return buildFrame(socketEvent, namespace, nil, data), nil
}

func buildAckFrame(namespace string, id int, args ...any) (string, error) {
	if args == nil {
		args = make([]any, 0)
	}
	data, err := json.Marshal(args)
	if err != nil {
		return "", err
	}
	return buildFrame(socketAck, namespace, &id, data), nil
}

func buildConnectFrame(namespace string, sid string) (string, error) {
	data, err := json.Marshal(map[string]string{"sid": sid})
	if err != nil {
		return "", err
	}
	return buildFrame(socketConnect, namespace, nil, data), nil
}

func buildConnectErrorFrame(namespace string, message string) (string, error) {
	data, err := json.Marshal(map[string]string{"message": message})
	if err != nil {
		return "", err
	}
	return buildFrame(socketConnectError, namespace, nil, data), nil
}
