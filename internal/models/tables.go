package models

// Table names used for rows and for change-feed routing.
const (
	TableEvents                   = "events"
	TableEventParticipants        = "event_participants"
	TableChatMessages             = "chat_messages"
	TablePostEventDiscussions     = "post_event_discussions"
	TableEventPolls               = "event_polls"
	TablePollResponses            = "poll_responses"
	TableEventSurveys             = "event_surveys"
	TableSurveyResponses          = "survey_responses"
	TableBreakoutRooms            = "breakout_rooms"
	TableBreakoutRoomParticipants = "breakout_room_participants"
	TableEventRecordings          = "event_recordings"
	TableParticipantActivities    = "participant_activities"
	TableEventInvitations         = "event_invitations"
)
