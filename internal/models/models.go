package models

// CreateCheckoutSessionRequest - запрос на создание сессии оплаты / заявки
type CreateCheckoutSessionRequest struct {
	ExperienceID   string `json:"experienceId" binding:"required,uuid"`
	Quantity       int    `json:"quantity" binding:"required,min=1"`
	Date           string `json:"date" binding:"required,bookingdate"`
	UserID         string `json:"userId" binding:"required,uuid"`
	CreatorID      string `json:"creatorId" binding:"required,uuid"`
	IdempotencyKey string `json:"idempotencyKey,omitempty" binding:"omitempty,max=255"`
}

// CreateCheckoutSessionResponse - для instant заполняется SessionID/URL,
// для request - RequestID и Status
type CreateCheckoutSessionResponse struct {
	SessionID string `json:"sessionId,omitempty"`
	URL       string `json:"url,omitempty"`
	BookingID string `json:"bookingId"`
	RequestID string `json:"requestId,omitempty"`
	Status    string `json:"status,omitempty"`
}

// ListBookingsResponse - список бронирований пользователя
type ListBookingsResponse []Booking

// SendMessageRequest - отправка сообщения через SMS/WhatsApp/email
type SendMessageRequest struct {
	UserID      string  `json:"userId" binding:"required"`
	RecipientID string  `json:"recipientId" binding:"required"`
	Content     string  `json:"content" binding:"required,max=1600"`
	Channel     Channel `json:"channel,omitempty" binding:"omitempty,channel"`
	MessageID   string  `json:"messageId" binding:"required"`
}

// AnnouncementRequest - рассылка создателя участникам впечатления
type AnnouncementRequest struct {
	Subject string `json:"subject" binding:"required,max=200"`
	Content string `json:"content" binding:"required,max=1600"`
	Type    string `json:"type" binding:"omitempty,oneof=announcement reminder update"`
}

// BroadcastRecipient - каким каналом был уведомлён получатель
type BroadcastRecipient struct {
	UserID  string  `json:"userId"`
	Channel Channel `json:"channel"`
	Status  string  `json:"status"`
}

// Broadcast - итог рассылки. Status всегда "sent" после цикла отправки.
type Broadcast struct {
	ID           string               `json:"id"`
	ExperienceID string               `json:"experienceId"`
	CreatorID    string               `json:"creatorId"`
	Subject      string               `json:"subject"`
	Content      string               `json:"content"`
	Type         string               `json:"type"`
	SentVia      []Channel            `json:"sentVia"`
	Recipients   []BroadcastRecipient `json:"recipients"`
	Status       string               `json:"status"`
}

type CreateConversationRequest struct {
	UserID       string  `json:"userId" binding:"required,uuid"`
	ExperienceID *string `json:"experienceId,omitempty" binding:"omitempty,uuid"`
}

type PostMessageRequest struct {
	Content string `json:"content" binding:"required,max=4000"`
	Type    string `json:"type" binding:"omitempty,oneof=text image file system"`
}

type MediaInput struct {
	URL        string `json:"url" binding:"required,url"`
	Type       string `json:"type" binding:"required,oneof=image video"`
	OrderIndex int    `json:"orderIndex" binding:"min=0"`
}

// CreateExperienceRequest - модель для создания впечатления
type CreateExperienceRequest struct {
	Title            string       `json:"title" binding:"required,max=200"`
	Description      string       `json:"description" binding:"required"`
	Price            Money        `json:"price" binding:"required,gt=0"`
	Duration         int          `json:"duration" binding:"required,min=1"`
	MaxParticipants  int          `json:"maxParticipants" binding:"required,min=1"`
	BookingType      string       `json:"bookingType" binding:"required,oneof=instant request"`
	ApprovalRequired bool         `json:"approvalRequired"`
	Location         *string      `json:"location,omitempty"`
	Category         *string      `json:"category,omitempty"`
	Media            []MediaInput `json:"media,omitempty" binding:"omitempty,dive"`
}

type CreateExperienceResponse struct {
	ID string `json:"id"`
}

type MediaUploadResponse struct {
	URL  string `json:"url"`
	Path string `json:"path"`
}

type UpdateRoleRequest struct {
	Role string `json:"role" binding:"required,oneof=user creator admin"`
}

type ModerationRequest struct {
	Reason string `json:"reason,omitempty" binding:"max=1000"`
}

// ExperienceSearchResult - ответ поиска по индексу
type ExperienceSearchResult struct {
	Total int64        `json:"total"`
	Items []Experience `json:"items"`
}
