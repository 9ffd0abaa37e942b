package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Currency - символьное имя валюты (BTC, USD, ...) и точность квантования.
// Иммутабельна после конструирования.
type Currency struct {
	Name   string
	Places int32
}

func (c Currency) String() string { return c.Name }

// CurrencyPair - упорядоченная пара валют. Цена пары котируется во
// второй валюте за единицу первой. Используется как ключ
// партиционирования на шине событий.
type CurrencyPair struct {
	First  Currency
	Second Currency
}

func (p CurrencyPair) String() string {
	return p.First.Name + "_" + p.Second.Name
}

// Equal возвращает true, если обе валюты пары совпадают.
func (p CurrencyPair) Equal(other CurrencyPair) bool {
	return p.First.Name == other.First.Name && p.Second.Name == other.Second.Name
}

// TradingOptions - параметры торговли для одной пары. Конструируются на
// старте и никогда не мутируют.
type TradingOptions struct {
	Pair           CurrencyPair
	Margin         decimal.Decimal
	MarginJitter   decimal.Decimal
	MinAmount      decimal.Decimal
	DealAmount     decimal.Decimal // ноль означает "не задано" — см. HasDealAmount
	PriceJumpValue decimal.Decimal
}

// HasDealAmount сообщает, было ли DealAmount задано явно в конфигурации.
func (o TradingOptions) HasDealAmount() bool {
	return o.DealAmount.IsPositive()
}

// OrderType - направление ордера.
type OrderType int

const (
	Sell OrderType = iota
	Buy
)

func (t OrderType) String() string {
	if t == Sell {
		return "sell"
	}
	return "buy"
}

// ParseOrderType маппит биржевую строку на OrderType: "sell" -> Sell,
// всё остальное -> Buy.
func ParseOrderType(s string) OrderType {
	if s == "sell" {
		return Sell
	}
	return Buy
}

// Order - ордер с точки зрения движка: value object, идентифицируемый
// по ID. Система учёта ордеров - сама биржа.
type Order struct {
	ID        string
	Type      OrderType
	Amount    decimal.Decimal
	Price     decimal.Decimal
	Created   time.Time // нулевое значение, если отсутствует
	Completed time.Time // нулевое значение, если отсутствует
}

// Age возвращает время, прошедшее с создания ордера относительно now.
// Используется только когда Created не нулевое.
func (o Order) Age(now time.Time) time.Duration {
	if o.Created.IsZero() {
		return 0
	}
	return now.Sub(o.Created)
}

// CommandKind - тег варианта команды, отправляемой Trader'ом Коннектору.
type CommandKind int

const (
	GetServerTime CommandKind = iota
	GetPrice
	GetBalance
	GetActiveOrders
	GetCompletedOrders
	CreateSellOrder
	CreateBuyOrder
	CancelOrder
)

func (k CommandKind) String() string {
	switch k {
	case GetServerTime:
		return "GetServerTime"
	case GetPrice:
		return "GetPrice"
	case GetBalance:
		return "GetBalance"
	case GetActiveOrders:
		return "GetActiveOrders"
	case GetCompletedOrders:
		return "GetCompletedOrders"
	case CreateSellOrder:
		return "CreateSellOrder"
	case CreateBuyOrder:
		return "CreateBuyOrder"
	case CancelOrder:
		return "CancelOrder"
	default:
		return "Unknown"
	}
}

// Command - тегированный вариант, поля используются в зависимости от
// Kind:
//
//	GetServerTime:      (нет полей)
//	GetPrice:            Pair
//	GetBalance:          Currency
//	GetActiveOrders:     Pair
//	GetCompletedOrders:  Pair
//	CreateSellOrder:     Pair, Amount, Price
//	CreateBuyOrder:      Pair, Amount, Price
//	CancelOrder:         OrderID
type Command struct {
	Kind     CommandKind
	Pair     CurrencyPair
	Currency Currency
	Amount   decimal.Decimal
	Price    decimal.Decimal
	OrderID  string
}

func (c Command) String() string {
	return c.Kind.String()
}

// EventKind - тег варианта события, публикуемого Коннектором.
type EventKind int

const (
	Time EventKind = iota
	Price
	Balance
	ActiveOrders
	CompletedOrders
)

func (k EventKind) String() string {
	switch k {
	case Time:
		return "Time"
	case Price:
		return "Price"
	case Balance:
		return "Balance"
	case ActiveOrders:
		return "ActiveOrders"
	case CompletedOrders:
		return "CompletedOrders"
	default:
		return "Unknown"
	}
}

// Event - тегированный вариант, поля используются в зависимости от Kind:
//
//	Time:            At
//	Price:           Pair, Value
//	Balance:         Currency, Value
//	ActiveOrders:    Pair, Orders (asc by price)
//	CompletedOrders: Pair, Orders (desc by completed)
type Event struct {
	Kind     EventKind
	Pair     CurrencyPair
	Currency Currency
	At       time.Time
	Value    decimal.Decimal
	Orders   []Order
}

func (e Event) String() string {
	return e.Kind.String()
}
