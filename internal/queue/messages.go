package queue

import (
	"fmt"

	"github.com/fanline/fanline/internal/domain"
)

func joinedMessage(event *domain.Event, position int) string {
	return fmt.Sprintf("You've joined the queue for %s. You are #%d in line.", event.Title, position)
}

func positionUpdateMessage(position int) string {
	return fmt.Sprintf("Your position has been updated! You are now #%d in line.", position)
}

func comingUpMessage(event *domain.Event) string {
	return fmt.Sprintf("You're coming up! Your turn for %s is in about 15 minutes.", event.Title)
}

func nextUpMessage(event *domain.Event) string {
	return fmt.Sprintf("You're next! Your turn for %s is in about 5 minutes. Please head to %s.", event.Title, event.Location)
}

func yourTurnMessage(event *domain.Event) string {
	return fmt.Sprintf("It's your turn! Please come to the %s.", event.Location)
}

func missedTurnMessage(event *domain.Event) string {
	return fmt.Sprintf("You missed your turn for %s. Please contact staff if you're still interested.", event.Title)
}
