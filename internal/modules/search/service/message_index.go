package service

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"log"
	"strconv"
	"strings"

	"anoa.com/yogaschool/internal/entity"
	"github.com/meilisearch/meilisearch-go"
	"github.com/microcosm-cc/bluemonday"
)

const messagesIndex = "messages"

// MessageIndex keeps chat messages searchable in Meilisearch.
// Searches are always filtered to the rooms passed in by the caller.
type MessageIndex struct {
	client    meilisearch.ServiceManager
	sanitizer *bluemonday.Policy
}

func NewMessageIndex(client meilisearch.ServiceManager) *MessageIndex {
	idx := &MessageIndex{
		client:    client,
		sanitizer: bluemonday.StrictPolicy(),
	}
	idx.initIndex()
	return idx
}

func (idx *MessageIndex) initIndex() {
	filterable := []any{"room_id", "sender_id"}
	if _, err := idx.client.Index(messagesIndex).UpdateFilterableAttributes(&filterable); err != nil {
		log.Printf("[Search] failed to update messages filterable attributes: %v", err)
	}

	sortable := []string{"timestamp"}
	if _, err := idx.client.Index(messagesIndex).UpdateSortableAttributes(&sortable); err != nil {
		log.Printf("[Search] failed to update messages sortable attributes: %v", err)
	}

	log.Println("[Search] messages index initialized")
}

type messageDoc struct {
	ID         string `json:"id"`
	RoomID     string `json:"room_id"`
	SenderID   string `json:"sender_id"`
	SenderName string `json:"sender_name"`
	Content    string `json:"content"`
	FileName   string `json:"file_name,omitempty"`
	Timestamp  int64  `json:"timestamp"`
}

func (idx *MessageIndex) IndexMessages(ctx context.Context, messages []*entity.Message) error {
	docs := make([]messageDoc, 0, len(messages))
	for _, m := range messages {
		if m.IsDeleted {
			continue
		}
		doc := messageDoc{
			ID:         m.ID,
			RoomID:     m.RoomID,
			SenderID:   m.SenderID,
			SenderName: m.SenderName,
			Content:    idx.cleanContent(m.Content),
			Timestamp:  m.Timestamp.UnixMilli(),
		}
		if m.FileName != nil {
			doc.FileName = *m.FileName
		}
		docs = append(docs, doc)
	}
	if len(docs) == 0 {
		return nil
	}

	primaryKey := "id"
	if _, err := idx.client.Index(messagesIndex).AddDocuments(docs, &primaryKey); err != nil {
		return err
	}
	return nil
}

func (idx *MessageIndex) RemoveMessage(ctx context.Context, messageID string) error {
	_, err := idx.client.Index(messagesIndex).DeleteDocument(messageID)
	return err
}

// SearchMessageIDs returns matching message ids, newest first.
func (idx *MessageIndex) SearchMessageIDs(ctx context.Context, query string, roomIDs []string, limit int) ([]string, error) {
	if len(roomIDs) == 0 {
		return []string{}, nil
	}

	resp, err := idx.client.Index(messagesIndex).Search(query, &meilisearch.SearchRequest{
		Filter:               roomFilter(roomIDs),
		Sort:                 []string{"timestamp:desc"},
		AttributesToRetrieve: []string{"id"},
		Limit:                int64(limit),
	})
	if err != nil {
		return nil, err
	}

	raw, err := json.Marshal(resp.Hits)
	if err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}
	var hits []struct {
		ID string `json:"id"`
	}
	if err := json.Unmarshal(raw, &hits); err != nil {
		return nil, fmt.Errorf("decode search hits: %w", err)
	}

	ids := make([]string, 0, len(hits))
	for _, h := range hits {
		if h.ID != "" {
			ids = append(ids, h.ID)
		}
	}
	return ids, nil
}

// cleanContent strips markup so only readable text is indexed.
func (idx *MessageIndex) cleanContent(content string) string {
	content = strings.ReplaceAll(content, "<br>", " ")
	content = strings.ReplaceAll(content, "</p>", " ")
	sanitized := idx.sanitizer.Sanitize(content)
	return strings.Join(strings.Fields(html.UnescapeString(sanitized)), " ")
}

func roomFilter(roomIDs []string) string {
	quoted := make([]string, len(roomIDs))
	for i, id := range roomIDs {
		quoted[i] = strconv.Quote(id)
	}
	return "room_id IN [" + strings.Join(quoted, ", ") + "]"
}
