package events

import (
	amqp "github.com/rabbitmq/amqp091-go"
)

// Domain keys accepted by Publish. Each key maps to one pre-declared
// topic exchange plus its dead-letter pair.
const (
	DomainPlans       = "plans"
	DomainCourses     = "courses"
	DomainHalls       = "halls"
	DomainEquipment   = "equipment"
	DomainMemberships = "memberships"
)

// QueueSpec is a durable queue bound to its domain exchange.
type QueueSpec struct {
	Name     string
	Bindings []string
}

// DomainSpec describes the broker topology for one logical domain.
// Messages rejected or expired by any of its queues are routed to the
// domain's dead-letter exchange and land in the dead-letter queue.
type DomainSpec struct {
	Exchange             string
	DeadLetterExchange   string
	DeadLetterQueue      string
	DeadLetterRoutingKey string
	Queues               []QueueSpec
}

// Topology maps domain keys to their broker layout.
type Topology map[string]DomainSpec

// DefaultTopology returns the exchanges and queues provisioned on every
// connect. Declarations are idempotent on the broker side.
func DefaultTopology() Topology {
	return Topology{
		DomainPlans: domainSpec("plans", []QueueSpec{
			{Name: "gymspot.plans.sync", Bindings: []string{"plan.#", "price.#"}},
		}),
		DomainCourses: domainSpec("courses", []QueueSpec{
			{Name: "gymspot.courses.sync", Bindings: []string{"course.#"}},
		}),
		DomainHalls: domainSpec("halls", []QueueSpec{
			{Name: "gymspot.halls.sync", Bindings: []string{"hall.#", "extra.#"}},
		}),
		DomainEquipment: domainSpec("equipment", []QueueSpec{
			{Name: "gymspot.equipment.sync", Bindings: []string{"equipment.#"}},
		}),
		DomainMemberships: domainSpec("memberships", []QueueSpec{
			{Name: "gymspot.memberships.sync", Bindings: []string{"subscription.#", "booking.#", "checkin.#"}},
		}),
	}
}

func domainSpec(domain string, queues []QueueSpec) DomainSpec {
	return DomainSpec{
		Exchange:             "gymspot." + domain,
		DeadLetterExchange:   "gymspot." + domain + ".dlx",
		DeadLetterQueue:      "gymspot." + domain + ".dead",
		DeadLetterRoutingKey: "dead." + domain,
		Queues:               queues,
	}
}

// declare provisions the domain's exchanges, queues and bindings on the
// given channel. Safe to re-run on every reconnect.
func (d DomainSpec) declare(ch *amqp.Channel) error {
	if err := ch.ExchangeDeclare(d.Exchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.ExchangeDeclare(d.DeadLetterExchange, amqp.ExchangeTopic, true, false, false, false, nil); err != nil {
		return err
	}
	if _, err := ch.QueueDeclare(d.DeadLetterQueue, true, false, false, false, nil); err != nil {
		return err
	}
	if err := ch.QueueBind(d.DeadLetterQueue, "dead.#", d.DeadLetterExchange, false, nil); err != nil {
		return err
	}
	for _, q := range d.Queues {
		args := amqp.Table{
			"x-dead-letter-exchange":    d.DeadLetterExchange,
			"x-dead-letter-routing-key": d.DeadLetterRoutingKey,
		}
		if _, err := ch.QueueDeclare(q.Name, true, false, false, false, args); err != nil {
			return err
		}
		for _, binding := range q.Bindings {
			if err := ch.QueueBind(q.Name, binding, d.Exchange, false, nil); err != nil {
				return err
			}
		}
	}
	return nil
}
