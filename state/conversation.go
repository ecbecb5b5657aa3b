package state

import (
	"context"
	"slices"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"immoflow/models"
	"immoflow/store"
)

// Messenger delivers an outbound chat message to the lead's phone and
// returns the provider's message id.
type Messenger interface {
	SendText(ctx context.Context, phone, text string) (string, error)
}

// LoadConversation replaces the tree's messages for leadID with the remote
// history, newest first, and returns them.
func (c *Controller) LoadConversation(ctx context.Context, leadID string) []models.Message {
	if c.Offline() {
		var out []models.Message
		for _, m := range Messages.Items(c) {
			if m.LeadID == leadID {
				out = append(out, m)
			}
		}
		return out
	}

	rows, err := c.remote.Select(ctx, Messages.Table, store.Query{
		Filter: store.Filter{store.Eq("lead_id", leadID)},
		Order:  Messages.Order,
	})
	if err != nil {
		c.logger.WithError(err).WithField("lead_id", leadID).Error("Conversation load failed")
		c.feedback.Error(store.Message(err, "Error al cargar mensajes"))
		return nil
	}
	msgs, err := store.DecodeAll[models.Message](rows)
	if err != nil {
		c.feedback.Error(err.Error())
		return nil
	}

	c.mu.Lock()
	others := slices.DeleteFunc(slices.Clone(c.tree.Messages), func(m models.Message) bool { return m.LeadID == leadID })
	c.tree.Messages = append(slices.Clone(msgs), others...)
	c.mu.Unlock()
	return msgs
}

// WatchConversation prepends every message inserted for leadID to the tree
// until ctx ends or the returned function is called.
func (c *Controller) WatchConversation(ctx context.Context, leadID string) store.Unsubscribe {
	if c.Offline() {
		return func() {}
	}
	log := c.logger.WithField("lead_id", leadID)
	stop, err := c.remote.Subscribe(ctx, Messages.Table, store.Filter{store.Eq("lead_id", leadID)}, func(row store.Row) {
		msg, err := store.Decode[models.Message](row)
		if err != nil {
			log.WithError(err).Warn("Dropping undecodable realtime message")
			return
		}
		if !c.receive(msg) {
			return
		}
		if c.onMessage != nil {
			c.onMessage(msg)
		}
	})
	if err != nil {
		log.WithError(err).Error("Realtime subscription failed")
		return func() {}
	}
	return stop
}

// receive prepends msg unless it is already known, and refreshes the lead's
// last message cache.
func (c *Controller) receive(msg models.Message) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if indexOf(c.tree.Messages, msg.ID) >= 0 {
		return false
	}
	Messages.prepend(&c.tree, msg)
	if i := indexOf(c.tree.Leads, msg.LeadID); i >= 0 {
		preview := msg.Content
		if preview == "" {
			preview = msg.FileName
		}
		c.tree.Leads[i].LastMessage = preview
	}
	return true
}

// MediaMessenger is implemented by messengers that can also deliver
// attachments.
type MediaMessenger interface {
	SendMedia(ctx context.Context, phone, mediaType, mediaURL, caption string) (string, error)
}

// SendMessage delivers content to the lead over WhatsApp when a messenger
// is configured, records it as an outbound message and returns it.
func (c *Controller) SendMessage(ctx context.Context, leadID, content string) *models.Message {
	row := store.Row{"content": content, "type": "text"}
	return c.sendOutbound(ctx, leadID, row, func(ctx context.Context, phone string) (string, error) {
		if c.messenger == nil {
			return "", nil
		}
		return c.messenger.SendText(ctx, phone, content)
	})
}

// SendMedia delivers an attachment already uploaded to mediaURL.
func (c *Controller) SendMedia(ctx context.Context, leadID, mediaType, mediaURL, fileName, caption string) *models.Message {
	row := store.Row{
		"content":    caption,
		"type":       mediaType,
		"media_url":  mediaURL,
		"media_type": mediaType,
		"file_name":  fileName,
	}
	return c.sendOutbound(ctx, leadID, row, func(ctx context.Context, phone string) (string, error) {
		mm, ok := c.messenger.(MediaMessenger)
		if !ok {
			return "", nil
		}
		return mm.SendMedia(ctx, phone, mediaType, mediaURL, caption)
	})
}

func (c *Controller) sendOutbound(ctx context.Context, leadID string, row store.Row, deliver func(ctx context.Context, phone string) (string, error)) *models.Message {
	log := c.logger.WithFields(logrus.Fields{"op": "send_message", "lead_id": leadID})
	lead, ok := Leads.Find(c, leadID)
	if !ok {
		c.feedback.Error("Lead no encontrado")
		return nil
	}
	row["lead_id"] = leadID
	row["direction"] = models.DirectionOutbound
	row["status"] = "sent"
	preview := row.String("content")
	if preview == "" {
		preview = row.String("file_name")
	}

	if c.Offline() {
		row["id"] = uuid.NewString()
		row["created_at"] = c.now().UTC()
		msg, err := store.Decode[models.Message](row)
		if err != nil {
			c.feedback.Error(err.Error())
			return nil
		}
		c.receive(msg)
		return &msg
	}

	waID, err := deliver(ctx, lead.Phone)
	if err != nil {
		log.WithError(err).Error("WhatsApp delivery failed")
		c.feedback.Error("Error al enviar: " + err.Error())
		return nil
	}
	if waID != "" {
		row["whatsapp_id"] = waID
	}

	inserted, err := c.remote.Insert(ctx, Messages.Table, row)
	if err != nil {
		log.WithError(err).Error("Message insert failed")
		c.feedback.Error(store.Message(err, "Error al guardar mensaje"))
		return nil
	}
	msg, err := store.Decode[models.Message](inserted)
	if err != nil {
		c.feedback.Error(err.Error())
		return nil
	}
	c.receive(msg)

	if _, _, err := c.remote.Update(ctx, Leads.Table, store.Filter{store.Eq("id", leadID)}, store.Row{"last_message": preview}); err != nil {
		log.WithError(err).Warn("Could not refresh last message cache")
	}
	return &msg
}
