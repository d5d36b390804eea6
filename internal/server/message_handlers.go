package server

import (
	"bazar/internal/models"
	"bazar/internal/service"

	"github.com/gofiber/fiber/v2"
)

type sendMessageRequest struct {
	ReceiverID flexUint `json:"receiver_id" form:"receiver_id"`
	ListingID  flexUint `json:"listing_id" form:"listing_id"`
	Content    string   `json:"content" form:"content"`
}

func (r sendMessageRequest) input(senderID uint) service.SendMessageInput {
	return service.SendMessageInput{
		SenderID:   senderID,
		ReceiverID: uint(r.ReceiverID),
		ListingID:  r.ListingID.ptr(),
		Content:    r.Content,
	}
}

// SendMessageForm handles POST /send-message and sends the browser back where it came from.
func (s *Server) SendMessageForm(c *fiber.Ctx) error {
	back := backURL(c, "/")
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		if wantsJSON(c) {
			return missingMessageData(c)
		}
		return s.flashRedirect(c, flashDanger, "Chýbajúce údaje.", back)
	}

	msg, err := s.messageService.Send(c.UserContext(), req.input(currentUserID(c)))
	if err != nil {
		if wantsJSON(c) {
			return respondError(c, err)
		}
		return s.flashRedirect(c, flashDanger, userMessage(err, "Chyba pri odosielaní správy."), back)
	}

	const text = "Správa bola odoslaná."
	if wantsJSON(c) {
		return success(c, fiber.StatusCreated, text, fiber.Map{"message_id": msg.ID})
	}
	return s.flashRedirect(c, flashSuccess, text, back)
}

func missingMessageData(c *fiber.Ctx) error {
	return models.RespondWithError(c, fiber.StatusBadRequest, models.NewValidationError("Chýbajúce údaje."))
}

// SendMessage handles POST /api/send-message
// @Summary Send a message
// @Tags messages
// @Accept json
// @Produce json
// @Param request body sendMessageRequest true "Message"
// @Success 201 {object} object{success=bool,message=string,message_id=int}
// @Failure 400 {object} models.ErrorResponse
// @Failure 401 {object} models.ErrorResponse
// @Router /api/send-message [post]
func (s *Server) SendMessage(c *fiber.Ctx) error {
	var req sendMessageRequest
	if err := c.BodyParser(&req); err != nil {
		return missingMessageData(c)
	}
	msg, err := s.messageService.Send(c.UserContext(), req.input(currentUserID(c)))
	if err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusCreated, "Správa bola odoslaná.", fiber.Map{"message_id": msg.ID})
}

// MyMessages handles GET /api/my-messages
// @Summary Every message sent or received
// @Tags messages
// @Produce json
// @Success 200 {array} service.MessageItem
// @Router /api/my-messages [get]
func (s *Server) MyMessages(c *fiber.Ctx) error {
	items, err := s.messageService.MyMessages(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(items)
}

// Conversations handles GET /api/conversations
// @Summary Conversation threads
// @Description One entry per (other user, listing) pair, newest activity first.
// @Tags messages
// @Produce json
// @Success 200 {array} models.ConversationThread
// @Router /api/conversations [get]
func (s *Server) Conversations(c *fiber.Ctx) error {
	threads, err := s.messageService.Conversations(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(threads)
}

// ConversationThread handles GET /api/conversation/:other_user_id[/:listing_id]
// and marks the other party's messages in the thread as read.
// @Summary Conversation thread
// @Tags messages
// @Produce json
// @Param other_user_id path int true "Other user ID"
// @Param listing_id path int false "Listing ID"
// @Success 200 {object} models.Thread
// @Failure 404 {object} models.ErrorResponse
// @Router /api/conversation/{other_user_id}/{listing_id} [get]
func (s *Server) ConversationThread(c *fiber.Ctx) error {
	otherID, err := s.parseID(c, "other_user_id")
	if err != nil {
		return nil
	}
	var listingID *uint
	if c.Params("listing_id") != "" {
		id, err := s.parseID(c, "listing_id")
		if err != nil {
			return nil
		}
		listingID = &id
	}
	thread, err := s.messageService.Thread(c.UserContext(), currentUserID(c), otherID, listingID)
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(thread)
}

// UnreadMessagesCount handles GET /api/unread-messages-count
// @Summary Unread message count
// @Tags messages
// @Produce json
// @Success 200 {object} object{count=int}
// @Router /api/unread-messages-count [get]
func (s *Server) UnreadMessagesCount(c *fiber.Ctx) error {
	n, err := s.messageService.UnreadCount(c.UserContext(), currentUserID(c))
	if err != nil {
		return respondError(c, err)
	}
	return c.JSON(fiber.Map{"count": n})
}

// MarkMessageRead handles POST /api/messages/:message_id/read
// @Summary Mark a message as read
// @Tags messages
// @Produce json
// @Param message_id path int true "Message ID"
// @Success 200 {object} object{success=bool,message=string}
// @Failure 403 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /api/messages/{message_id}/read [post]
func (s *Server) MarkMessageRead(c *fiber.Ctx) error {
	id, err := s.parseID(c, "message_id")
	if err != nil {
		return nil
	}
	if err := s.messageService.MarkRead(c.UserContext(), currentUserID(c), id); err != nil {
		return respondError(c, err)
	}
	return success(c, fiber.StatusOK, "Správa bola označená ako prečítaná.", nil)
}
